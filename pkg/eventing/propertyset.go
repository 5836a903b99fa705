package eventing

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// LastChangeVariable is the evented variable that AVTransport and
// RenderingControl use to batch their state changes.
const LastChangeVariable = "LastChange"

var errEmptyBody = errors.New("empty body")

// Property is one evented state variable from a NOTIFY property set.
type Property struct {
	Name  string
	Value string
}

// Message is a decoded NOTIFY delivered to a subscription's handler.
type Message struct {
	// SID of the subscription the notification was sent for.
	SID string

	// Seq is the event key. Zero is the initial event after subscribing.
	Seq uint32

	// Properties in document order.
	Properties []Property

	// Body is the raw XML body.
	Body []byte

	// RemoteAddr is the sender's address.
	RemoteAddr string

	// ReceivedAt is when the listener accepted the request.
	ReceivedAt time.Time
}

// Get returns the value of the first property named name.
func (m Message) Get(name string) (string, bool) {
	for _, p := range m.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Map returns the properties keyed by name. Later duplicates win.
func (m Message) Map() map[string]string {
	out := make(map[string]string, len(m.Properties))
	for _, p := range m.Properties {
		out[p.Name] = p.Value
	}
	return out
}

type xmlPropertySet struct {
	XMLName    xml.Name      `xml:"propertyset"`
	Properties []xmlProperty `xml:"property"`
}

type xmlProperty struct {
	Vars []xmlVariable `xml:",any"`
}

type xmlVariable struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
	Inner   string `xml:",innerxml"`
}

func newXMLDecoder(body []byte) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(body))
	d.CharsetReader = charset.NewReaderLabel
	return d
}

// ParsePropertySet decodes a GENA e:propertyset body.
func ParsePropertySet(body []byte) ([]Property, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errEmptyBody
	}
	var ps xmlPropertySet
	if err := newXMLDecoder(body).Decode(&ps); err != nil {
		return nil, fmt.Errorf("decode propertyset: %w", err)
	}

	var props []Property
	for _, p := range ps.Properties {
		for _, v := range p.Vars {
			value := strings.TrimSpace(v.Text)
			if value == "" {
				// Some renderers embed LastChange unescaped.
				value = strings.TrimSpace(v.Inner)
			}
			props = append(props, Property{Name: v.XMLName.Local, Value: value})
		}
	}
	return props, nil
}

// LastChangeValue is one variable reported inside a LastChange document.
type LastChangeValue struct {
	InstanceID uint32
	Name       string
	Channel    string
	Value      string
}

type xmlLastChange struct {
	XMLName   xml.Name `xml:"Event"`
	Instances []struct {
		Val  string `xml:"val,attr"`
		Vars []struct {
			XMLName xml.Name
			Val     string `xml:"val,attr"`
			Channel string `xml:"channel,attr"`
		} `xml:",any"`
	} `xml:"InstanceID"`
}

// ParseLastChange decodes the XML carried in a LastChange property.
func ParseLastChange(doc string) ([]LastChangeValue, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, errEmptyBody
	}
	var lc xmlLastChange
	if err := newXMLDecoder([]byte(doc)).Decode(&lc); err != nil {
		return nil, fmt.Errorf("decode LastChange: %w", err)
	}

	var out []LastChangeValue
	for _, inst := range lc.Instances {
		id, err := strconv.ParseUint(strings.TrimSpace(inst.Val), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("decode LastChange: bad InstanceID %q", inst.Val)
		}
		for _, v := range inst.Vars {
			out = append(out, LastChangeValue{
				InstanceID: uint32(id),
				Name:       v.XMLName.Local,
				Channel:    v.Channel,
				Value:      v.Val,
			})
		}
	}
	return out, nil
}
