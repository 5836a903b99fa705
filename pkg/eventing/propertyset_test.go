package eventing

import (
	"strings"
	"testing"
)

const avTransportNotify = `<?xml version="1.0"?>
<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">
  <e:property>
    <LastChange>&lt;Event xmlns=&quot;urn:schemas-upnp-org:metadata-1-0/AVT/&quot;&gt;&lt;InstanceID val=&quot;0&quot;&gt;&lt;TransportState val=&quot;PLAYING&quot;/&gt;&lt;CurrentTrackURI val=&quot;http://x/a.mp3&quot;/&gt;&lt;/InstanceID&gt;&lt;/Event&gt;</LastChange>
  </e:property>
</e:propertyset>`

func TestParsePropertySetMultipleVariables(t *testing.T) {
	body := `<?xml version="1.0"?>
<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">
  <e:property><Volume>12</Volume></e:property>
  <e:property><Mute>0</Mute></e:property>
  <e:property><PresetNameList>FactoryDefaults</PresetNameList></e:property>
</e:propertyset>`

	props, err := ParsePropertySet([]byte(body))
	if err != nil {
		t.Fatalf("ParsePropertySet: %v", err)
	}
	want := []Property{{"Volume", "12"}, {"Mute", "0"}, {"PresetNameList", "FactoryDefaults"}}
	if len(props) != len(want) {
		t.Fatalf("got %d properties, want %d", len(props), len(want))
	}
	for i := range want {
		if props[i] != want[i] {
			t.Errorf("props[%d] = %+v, want %+v", i, props[i], want[i])
		}
	}
}

func TestParsePropertySetLastChange(t *testing.T) {
	props, err := ParsePropertySet([]byte(avTransportNotify))
	if err != nil {
		t.Fatalf("ParsePropertySet: %v", err)
	}
	msg := Message{Properties: props}
	doc, ok := msg.Get(LastChangeVariable)
	if !ok {
		t.Fatal("LastChange missing")
	}
	if !strings.HasPrefix(doc, "<Event") {
		t.Fatalf("LastChange not unescaped: %q", doc)
	}

	values, err := ParseLastChange(doc)
	if err != nil {
		t.Fatalf("ParseLastChange: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("got %d values, want 2", len(values))
	}
	if values[0].Name != "TransportState" || values[0].Value != "PLAYING" || values[0].InstanceID != 0 {
		t.Errorf("values[0] = %+v", values[0])
	}
	if values[1].Value != "http://x/a.mp3" {
		t.Errorf("values[1] = %+v", values[1])
	}
}

func TestParsePropertySetUnescapedLastChange(t *testing.T) {
	body := `<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0"><e:property><LastChange>` +
		`<Event xmlns="urn:schemas-upnp-org:metadata-1-0/RCS/"><InstanceID val="0"><Volume channel="Master" val="33"/></InstanceID></Event>` +
		`</LastChange></e:property></e:propertyset>`

	props, err := ParsePropertySet([]byte(body))
	if err != nil {
		t.Fatalf("ParsePropertySet: %v", err)
	}
	values, err := ParseLastChange(props[0].Value)
	if err != nil {
		t.Fatalf("ParseLastChange: %v", err)
	}
	if len(values) != 1 || values[0].Channel != "Master" || values[0].Value != "33" {
		t.Errorf("values = %+v", values)
	}
}

func TestParsePropertySetCharset(t *testing.T) {
	// "Küche" in ISO-8859-1.
	body := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>" +
		"<e:propertyset xmlns:e=\"urn:schemas-upnp-org:event-1-0\"><e:property><ZoneName>K\xfcche</ZoneName></e:property></e:propertyset>")

	props, err := ParsePropertySet(body)
	if err != nil {
		t.Fatalf("ParsePropertySet: %v", err)
	}
	if props[0].Value != "Küche" {
		t.Errorf("ZoneName = %q, want Küche", props[0].Value)
	}
}

func TestParsePropertySetErrors(t *testing.T) {
	for name, body := range map[string]string{
		"empty":     "",
		"blank":     "   \n",
		"truncated": "<e:propertyset><e:property>",
		"wrong root": `<root><property><A>1</A></property></root>`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParsePropertySet([]byte(body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseLastChangeBadInstance(t *testing.T) {
	if _, err := ParseLastChange(`<Event><InstanceID val="x"><A val="1"/></InstanceID></Event>`); err == nil {
		t.Error("expected error for non-numeric InstanceID")
	}
	if _, err := ParseLastChange(""); err == nil {
		t.Error("expected error for empty document")
	}
}

func TestMessageMap(t *testing.T) {
	m := Message{Properties: []Property{{"A", "1"}, {"B", "2"}, {"A", "3"}}}
	got := m.Map()
	if got["A"] != "3" || got["B"] != "2" {
		t.Errorf("Map() = %v", got)
	}
	if v, _ := m.Get("A"); v != "1" {
		t.Errorf("Get(A) = %q, want first value", v)
	}
}

func TestParseTarget(t *testing.T) {
	tg, err := ParseTarget("http://192.168.1.20:1400/MediaRenderer/AVTransport/Event")
	if err != nil {
		t.Fatalf("ParseTarget: %v", err)
	}
	if tg.Host != "192.168.1.20" || tg.Port != 1400 || tg.EventSubPath != "/MediaRenderer/AVTransport/Event" {
		t.Errorf("target = %+v", tg)
	}
	if tg.URL() != "http://192.168.1.20:1400/MediaRenderer/AVTransport/Event" {
		t.Errorf("URL() = %q", tg.URL())
	}

	tg, err = ParseTarget("http://renderer.local/evt?x=1")
	if err != nil || tg.Port != 80 || tg.EventSubPath != "/evt?x=1" {
		t.Errorf("default port target = %+v, %v", tg, err)
	}

	for _, bad := range []string{"/relative/path", "https://h/evt", "http://:80/x", "http://h:port/x"} {
		if _, err := ParseTarget(bad); err == nil {
			t.Errorf("ParseTarget(%q) succeeded", bad)
		}
	}

	if got := (Target{Host: "::1", Port: 8080, EventSubPath: "evt"}).URL(); got != "http://[::1]:8080/evt" {
		t.Errorf("IPv6 URL() = %q", got)
	}
}
