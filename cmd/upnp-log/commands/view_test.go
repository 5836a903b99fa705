package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/renderkit/upnp-go/pkg/log"
)

func TestFormatExchangeRequest(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 30, 0, 123456000, time.UTC)
	event := log.Event{
		Timestamp:  ts,
		ExchangeID: "6f1c2a9e-1234-4000-8000-000000000001",
		Direction:  log.DirectionOut,
		Layer:      log.LayerHTTP,
		Category:   log.CategoryExchange,
		RemoteAddr: "192.168.1.20:1400",
		Exchange: &log.ExchangeEvent{
			Method:  "SUBSCRIBE",
			URL:     "http://192.168.1.20:1400/MediaRenderer/AVTransport/Event",
			Headers: map[string]string{"TIMEOUT": "Second-1800", "CALLBACK": "<http://192.168.1.5:38111/>"},
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event, false)
	output := buf.String()

	for _, want := range []string{
		"2026-03-14T09:30:00.123456Z",
		"[xchg:6f1c2a9e]",
		"OUT",
		"HTTP SUBSCRIBE",
		"Remote: 192.168.1.20:1400",
		"URL: http://192.168.1.20:1400/MediaRenderer/AVTransport/Event",
		"TIMEOUT: Second-1800",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}

	// Headers are printed in sorted order.
	if strings.Index(output, "CALLBACK") > strings.Index(output, "TIMEOUT") {
		t.Errorf("expected sorted headers, got: %s", output)
	}
}

func TestFormatExchangeResponse(t *testing.T) {
	d := 2333 * time.Microsecond
	event := log.Event{
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Direction: log.DirectionIn,
		Layer:     log.LayerSOAP,
		Category:  log.CategoryExchange,
		Exchange: &log.ExchangeEvent{
			Method:     "POST",
			StatusCode: intPtr(500),
			Duration:   &d,
			BodySize:   9000,
			Body:       []byte("<s:Envelope>\n  <faultcode>s:Client</faultcode>\n</s:Envelope>"),
			Truncated:  true,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event, true)
	output := buf.String()

	if !strings.Contains(output, "[xchg:-]") {
		t.Errorf("expected placeholder exchange ID, got: %s", output)
	}
	if !strings.Contains(output, "SOAP POST 500") {
		t.Errorf("expected SOAP POST 500 header, got: %s", output)
	}
	if !strings.Contains(output, "Duration: 2.333ms") {
		t.Errorf("expected duration, got: %s", output)
	}
	if !strings.Contains(output, "Body: 9000 bytes (truncated)") {
		t.Errorf("expected truncated body size, got: %s", output)
	}
	if !strings.Contains(output, "    <faultcode>s:Client</faultcode>") {
		t.Errorf("expected indented body, got: %s", output)
	}
}

func TestFormatBodyHiddenByDefault(t *testing.T) {
	event := log.Event{
		Category: log.CategoryExchange,
		Exchange: &log.ExchangeEvent{Method: "NOTIFY", BodySize: 5, Body: []byte("hello")},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event, false)
	if strings.Contains(buf.String(), "hello") {
		t.Errorf("expected body to be hidden, got: %s", buf.String())
	}
}

func TestFormatBodyLimits(t *testing.T) {
	var buf bytes.Buffer
	formatBody(&buf, []byte{0xff, 0xfe, 0x00})
	if !strings.Contains(buf.String(), "<binary>") {
		t.Errorf("expected binary marker, got: %s", buf.String())
	}

	buf.Reset()
	formatBody(&buf, []byte(strings.Repeat("line\n", maxBodyLines+5)))
	if !strings.Contains(buf.String(), "... 5 more lines") {
		t.Errorf("expected line limit marker, got: %s", buf.String())
	}
}

func TestFormatNotifyEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Date(2026, 3, 14, 9, 30, 1, 0, time.UTC),
		Direction: log.DirectionIn,
		Layer:     log.LayerGENA,
		Category:  log.CategoryNotify,
		DeviceUDN: "uuid:RINCON_1",
		SID:       "uuid:sub-1",
		Notify: &log.NotifyEvent{
			Seq: 7,
			Properties: map[string]string{
				"Volume":     "20",
				"LastChange": "<Event>\n  <InstanceID val=\"0\"/>\n</Event>",
			},
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event, false)
	output := buf.String()

	if !strings.Contains(output, "GENA Notify") {
		t.Errorf("expected GENA Notify header, got: %s", output)
	}
	if !strings.Contains(output, "SEQ: 7 (unrouted)") {
		t.Errorf("expected unrouted SEQ line, got: %s", output)
	}
	if !strings.Contains(output, "Device: uuid:RINCON_1") || !strings.Contains(output, "SID: uuid:sub-1") {
		t.Errorf("expected device and SID lines, got: %s", output)
	}
	if !strings.Contains(output, `LastChange = <Event> <InstanceID val="0"/> </Event>`) {
		t.Errorf("expected flattened LastChange, got: %s", output)
	}
	if strings.Index(output, "LastChange") > strings.Index(output, "Volume") {
		t.Errorf("expected sorted properties, got: %s", output)
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	event := log.Event{
		Layer:    log.LayerGENA,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySubscription,
			OldState: "ACTIVE",
			NewState: "TERMINATED",
			Reason:   "renewal failed",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event, false)
	output := buf.String()

	if !strings.Contains(output, "Entity: SUBSCRIPTION") {
		t.Errorf("expected entity, got: %s", output)
	}
	if !strings.Contains(output, "ACTIVE -> TERMINATED") {
		t.Errorf("expected transition, got: %s", output)
	}
	if !strings.Contains(output, "Reason: renewal failed") {
		t.Errorf("expected reason, got: %s", output)
	}

	buf.Reset()
	event.StateChange = &log.StateChangeEvent{Entity: log.StateEntityDevice, NewState: "PRESENT"}
	formatEvent(&buf, event, false)
	if !strings.Contains(buf.String(), "  -> PRESENT") {
		t.Errorf("expected initial transition, got: %s", buf.String())
	}
}

func TestFormatErrorEvent(t *testing.T) {
	event := log.Event{
		Layer:    log.LayerSOAP,
		Category: log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerSOAP,
			Message: "Transition not available",
			Code:    intPtr(701),
			Context: "Play",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event, false)
	output := buf.String()

	for _, want := range []string{"SOAP Error", "Message: Transition not available", "Code: 701", "Context: Play"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayerFlag("SOAP"); err != nil || l != log.LayerSOAP {
		t.Errorf("ParseLayerFlag(SOAP) = %v, %v", l, err)
	}
	if l, err := ParseLayerFlag("gena"); err != nil || l != log.LayerGENA {
		t.Errorf("ParseLayerFlag(gena) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("wire"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if d, err := ParseDirectionFlag("In"); err != nil || d != log.DirectionIn {
		t.Errorf("ParseDirectionFlag(In) = %v, %v", d, err)
	}
	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
	if c, err := ParseCategoryFlag("notify"); err != nil || c != log.CategoryNotify {
		t.Errorf("ParseCategoryFlag(notify) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("snapshot"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestRunViewFilters(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	layer := log.LayerGENA
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Layer: &layer}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()
	if strings.Contains(output, "SUBSCRIBE") {
		t.Errorf("expected only GENA events, got: %s", output)
	}
	if !strings.Contains(output, "TransportState = PLAYING") {
		t.Errorf("expected notify event, got: %s", output)
	}

	buf.Reset()
	if err := RunView(path, ViewFilter{SID: "uuid:sub-1", Method: "subscribe"}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output = buf.String()
	if strings.Count(output, "SUBSCRIBE") != 1 || !strings.Contains(output, "SUBSCRIBE 200") {
		t.Errorf("expected only the SUBSCRIBE response, got: %s", output)
	}
}
