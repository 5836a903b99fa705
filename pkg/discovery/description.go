package discovery

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/renderkit/upnp-go/pkg/eventing"
	"github.com/renderkit/upnp-go/pkg/version"
	"golang.org/x/net/html/charset"
)

// Description is a parsed root device description document.
type Description struct {
	// Location is where the document was fetched from.
	Location string

	SpecVersion version.SpecVersion

	// URLBase is the base for relative URLs; Location when absent.
	URLBase string

	Device Device
}

// Device is a UPnP device, possibly containing embedded devices.
type Device struct {
	UDN          string
	DeviceType   string
	FriendlyName string
	Manufacturer string
	ModelName    string
	ModelNumber  string
	SerialNumber string

	// PresentationURL is absolute, or empty.
	PresentationURL string

	Services []Service
	Devices  []Device
}

// Service is a service entry of a device description. All URLs are
// absolute.
type Service struct {
	ServiceType string
	ServiceID   string
	SCPDURL     string
	ControlURL  string
	EventSubURL string
}

// ShortName returns the service name from the service type, e.g.
// "AVTransport" for urn:schemas-upnp-org:service:AVTransport:1.
func (s Service) ShortName() string {
	parts := strings.Split(s.ServiceType, ":")
	if len(parts) >= 5 {
		return parts[3]
	}
	if i := strings.LastIndex(s.ServiceID, ":"); i >= 0 {
		return s.ServiceID[i+1:]
	}
	return s.ServiceID
}

// Evented reports whether the service has an event subscription URL.
func (s Service) Evented() bool {
	return s.EventSubURL != ""
}

// EventTarget returns the eventing target of the service.
func (s Service) EventTarget() (eventing.Target, error) {
	return eventing.ParseTarget(s.EventSubURL)
}

// AllDevices returns the root device followed by all embedded devices,
// depth first.
func (d *Description) AllDevices() []Device {
	var out []Device
	var walk func(Device)
	walk = func(dev Device) {
		out = append(out, dev)
		for _, sub := range dev.Devices {
			walk(sub)
		}
	}
	walk(d.Device)
	return out
}

// FindService returns the first service of any device whose short name or
// full type matches name.
func (d *Description) FindService(name string) (Service, bool) {
	for _, dev := range d.AllDevices() {
		for _, svc := range dev.Services {
			if svc.ShortName() == name || svc.ServiceType == name {
				return svc, true
			}
		}
	}
	return Service{}, false
}

type xmlRoot struct {
	XMLName     xml.Name `xml:"root"`
	SpecVersion struct {
		Major string `xml:"major"`
		Minor string `xml:"minor"`
	} `xml:"specVersion"`
	URLBase string    `xml:"URLBase"`
	Device  xmlDevice `xml:"device"`
}

type xmlDevice struct {
	UDN             string       `xml:"UDN"`
	DeviceType      string       `xml:"deviceType"`
	FriendlyName    string       `xml:"friendlyName"`
	Manufacturer    string       `xml:"manufacturer"`
	ModelName       string       `xml:"modelName"`
	ModelNumber     string       `xml:"modelNumber"`
	SerialNumber    string       `xml:"serialNumber"`
	PresentationURL string       `xml:"presentationURL"`
	Services        []xmlService `xml:"serviceList>service"`
	Devices         []xmlDevice  `xml:"deviceList>device"`
}

type xmlService struct {
	ServiceType string `xml:"serviceType"`
	ServiceID   string `xml:"serviceId"`
	SCPDURL     string `xml:"SCPDURL"`
	ControlURL  string `xml:"controlURL"`
	EventSubURL string `xml:"eventSubURL"`
}

func newDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}

// ParseDescription parses a device description fetched from location.
func ParseDescription(r io.Reader, location string) (*Description, error) {
	var root xmlRoot
	if err := newDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("discovery: parse description: %w", err)
	}
	if root.Device.UDN == "" && root.Device.DeviceType == "" {
		return nil, ErrNoRootDevice
	}

	base := strings.TrimSpace(root.URLBase)
	if base == "" {
		base = location
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("discovery: bad URL base %q: %w", base, err)
	}

	desc := &Description{
		Location: location,
		URLBase:  base,
		Device:   convertDevice(root.Device, baseURL),
	}
	// A missing or malformed specVersion is tolerated; many devices get it wrong.
	if v, err := version.Parse(strings.TrimSpace(root.SpecVersion.Major) + "." + strings.TrimSpace(root.SpecVersion.Minor)); err == nil {
		desc.SpecVersion = v
	}
	return desc, nil
}

func convertDevice(x xmlDevice, base *url.URL) Device {
	dev := Device{
		UDN:             strings.TrimSpace(x.UDN),
		DeviceType:      strings.TrimSpace(x.DeviceType),
		FriendlyName:    strings.TrimSpace(x.FriendlyName),
		Manufacturer:    strings.TrimSpace(x.Manufacturer),
		ModelName:       strings.TrimSpace(x.ModelName),
		ModelNumber:     strings.TrimSpace(x.ModelNumber),
		SerialNumber:    strings.TrimSpace(x.SerialNumber),
		PresentationURL: resolve(base, x.PresentationURL),
	}
	for _, s := range x.Services {
		dev.Services = append(dev.Services, Service{
			ServiceType: strings.TrimSpace(s.ServiceType),
			ServiceID:   strings.TrimSpace(s.ServiceID),
			SCPDURL:     resolve(base, s.SCPDURL),
			ControlURL:  resolve(base, s.ControlURL),
			EventSubURL: resolve(base, s.EventSubURL),
		})
	}
	for _, sub := range x.Devices {
		dev.Devices = append(dev.Devices, convertDevice(sub, base))
	}
	return dev
}

// resolve makes ref absolute against base. Empty refs stay empty.
func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
