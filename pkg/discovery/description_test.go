package discovery

import (
	"strings"
	"testing"

	"github.com/renderkit/upnp-go/pkg/eventing"
	"github.com/renderkit/upnp-go/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zonePlayerDescription = `<?xml version="1.0" encoding="utf-8" ?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <device>
    <deviceType>urn:schemas-upnp-org:device:ZonePlayer:1</deviceType>
    <friendlyName>10.0.0.5 - Sonos One</friendlyName>
    <manufacturer>Sonos, Inc.</manufacturer>
    <modelName>Sonos One</modelName>
    <UDN>uuid:RINCON_1</UDN>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:AlarmClock:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:AlarmClock</serviceId>
        <controlURL>/AlarmClock/Control</controlURL>
        <eventSubURL>/AlarmClock/Event</eventSubURL>
        <SCPDURL>/xml/AlarmClock1.xml</SCPDURL>
      </service>
    </serviceList>
    <deviceList>
      <device>
        <deviceType>urn:schemas-upnp-org:device:MediaRenderer:1</deviceType>
        <friendlyName>Sonos One Media Renderer</friendlyName>
        <UDN>uuid:RINCON_1_MR</UDN>
        <serviceList>
          <service>
            <serviceType>urn:schemas-upnp-org:service:RenderingControl:1</serviceType>
            <serviceId>urn:upnp-org:serviceId:RenderingControl</serviceId>
            <controlURL>/MediaRenderer/RenderingControl/Control</controlURL>
            <eventSubURL>/MediaRenderer/RenderingControl/Event</eventSubURL>
            <SCPDURL>/xml/RenderingControl1.xml</SCPDURL>
          </service>
          <service>
            <serviceType>urn:schemas-upnp-org:service:AVTransport:1</serviceType>
            <serviceId>urn:upnp-org:serviceId:AVTransport</serviceId>
            <controlURL>/MediaRenderer/AVTransport/Control</controlURL>
            <eventSubURL>/MediaRenderer/AVTransport/Event</eventSubURL>
            <SCPDURL>/xml/AVTransport1.xml</SCPDURL>
          </service>
          <service>
            <serviceType>urn:schemas-upnp-org:service:ConnectionManager:1</serviceType>
            <serviceId>urn:upnp-org:serviceId:ConnectionManager</serviceId>
            <controlURL>/MediaRenderer/ConnectionManager/Control</controlURL>
            <eventSubURL></eventSubURL>
            <SCPDURL>/xml/ConnectionManager1.xml</SCPDURL>
          </service>
        </serviceList>
      </device>
    </deviceList>
  </device>
</root>`

func TestParseDescription(t *testing.T) {
	desc, err := ParseDescription(strings.NewReader(zonePlayerDescription), "http://10.0.0.5:1400/xml/device_description.xml")
	require.NoError(t, err)

	assert.Equal(t, version.SpecVersion{Major: 1, Minor: 0}, desc.SpecVersion)
	assert.Equal(t, "uuid:RINCON_1", desc.Device.UDN)
	assert.Equal(t, "Sonos One", desc.Device.ModelName)

	devices := desc.AllDevices()
	require.Len(t, devices, 2)
	assert.Equal(t, "uuid:RINCON_1_MR", devices[1].UDN)

	avt, ok := desc.FindService("AVTransport")
	require.True(t, ok)
	assert.Equal(t, "http://10.0.0.5:1400/MediaRenderer/AVTransport/Control", avt.ControlURL)
	assert.Equal(t, "http://10.0.0.5:1400/MediaRenderer/AVTransport/Event", avt.EventSubURL)
	assert.Equal(t, "http://10.0.0.5:1400/xml/AVTransport1.xml", avt.SCPDURL)
	assert.True(t, avt.Evented())

	target, err := avt.EventTarget()
	require.NoError(t, err)
	assert.Equal(t, eventing.Target{Host: "10.0.0.5", Port: 1400, EventSubPath: "/MediaRenderer/AVTransport/Event"}, target)

	cm, ok := desc.FindService("urn:schemas-upnp-org:service:ConnectionManager:1")
	require.True(t, ok)
	assert.False(t, cm.Evented())

	_, ok = desc.FindService("ContentDirectory")
	assert.False(t, ok)
}

func TestParseDescriptionURLBase(t *testing.T) {
	doc := `<root><URLBase>http://192.168.1.20:49152/</URLBase><device><UDN>uuid:tv</UDN>
	<serviceList><service><serviceType>urn:schemas-upnp-org:service:RenderingControl:1</serviceType>
	<serviceId>urn:upnp-org:serviceId:RenderingControl</serviceId>
	<controlURL>upnp/control/rc</controlURL><eventSubURL>upnp/event/rc</eventSubURL>
	<SCPDURL>rc.xml</SCPDURL></service></serviceList></device></root>`

	desc, err := ParseDescription(strings.NewReader(doc), "http://192.168.1.20:8080/description.xml")
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.20:49152/", desc.URLBase)

	svc := desc.Device.Services[0]
	assert.Equal(t, "http://192.168.1.20:49152/upnp/event/rc", svc.EventSubURL)
	assert.Equal(t, "RenderingControl", svc.ShortName())
	// Missing specVersion is tolerated.
	assert.Equal(t, version.SpecVersion{}, desc.SpecVersion)
}

func TestParseDescriptionCharset(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<root><device><UDN>uuid:k</UDN><friendlyName>K\xfcche</friendlyName></device></root>"

	desc, err := ParseDescription(strings.NewReader(doc), "http://h/d.xml")
	require.NoError(t, err)
	assert.Equal(t, "Küche", desc.Device.FriendlyName)
}

func TestParseDescriptionErrors(t *testing.T) {
	_, err := ParseDescription(strings.NewReader("<root></root>"), "http://h/d.xml")
	assert.ErrorIs(t, err, ErrNoRootDevice)

	_, err = ParseDescription(strings.NewReader("<root><device>"), "http://h/d.xml")
	assert.Error(t, err)
}

func TestServiceShortName(t *testing.T) {
	assert.Equal(t, "AVTransport", Service{ServiceType: "urn:schemas-upnp-org:service:AVTransport:1"}.ShortName())
	assert.Equal(t, "Queue", Service{ServiceID: "urn:sonos-com:serviceId:Queue"}.ShortName())
}
