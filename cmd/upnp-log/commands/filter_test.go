package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/renderkit/upnp-go/pkg/log"
)

func readAll(t *testing.T, path string) []log.Event {
	t.Helper()
	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer reader.Close()

	events, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("failed to read events: %v", err)
	}
	return events
}

func TestFilterByDeviceUDN(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, DeviceUDN: "uuid:RINCON_1", Category: log.CategoryExchange},
		{Timestamp: ts, DeviceUDN: "uuid:RINCON_2", Category: log.CategoryExchange},
		{Timestamp: ts, DeviceUDN: "uuid:RINCON_1", Category: log.CategoryNotify},
	}

	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "filtered.ulog")

	n, err := RunFilter(path, FilterOptions{Output: outPath, DeviceUDN: "uuid:RINCON_1"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 events written, got %d", n)
	}

	got := readAll(t, outPath)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	for _, e := range got {
		if e.DeviceUDN != "uuid:RINCON_1" {
			t.Errorf("expected uuid:RINCON_1, got %s", e.DeviceUDN)
		}
	}
}

func TestFilterByTimeRange(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: base},
		{Timestamp: base.Add(10 * time.Minute)},
		{Timestamp: base.Add(20 * time.Minute)},
		{Timestamp: base.Add(30 * time.Minute)},
	}

	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "filtered.ulog")

	n, err := RunFilter(path, FilterOptions{
		Output:    outPath,
		TimeStart: base.Add(5 * time.Minute).Format(time.RFC3339),
		TimeEnd:   base.Add(30 * time.Minute).Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	// The end bound is exclusive.
	if n != 2 {
		t.Errorf("expected 2 events, got %d", n)
	}
}

func TestFilterCombined(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	outPath := filepath.Join(t.TempDir(), "filtered.ulog")

	n, err := RunFilter(path, FilterOptions{
		Output:    outPath,
		SID:       "uuid:sub-1",
		Layer:     "http",
		Direction: "in",
		Category:  "exchange",
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 event, got %d", n)
	}

	got := readAll(t, outPath)
	if len(got) != 1 || got[0].Exchange == nil || got[0].Exchange.StatusCode == nil || *got[0].Exchange.StatusCode != 200 {
		t.Errorf("expected the SUBSCRIBE response, got %+v", got)
	}
}

func TestFilterByExchangeAndMethod(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	outPath := filepath.Join(t.TempDir(), "filtered.ulog")

	n, err := RunFilter(path, FilterOptions{
		Output:     outPath,
		ExchangeID: "6f1c2a9e-0000-4000-8000-000000000001",
		Method:     "SUBSCRIBE",
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected request and response, got %d", n)
	}
}

func TestFilterInvalidOptions(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	outPath := filepath.Join(t.TempDir(), "filtered.ulog")

	tests := []struct {
		name string
		opts FilterOptions
	}{
		{"time-start", FilterOptions{Output: outPath, TimeStart: "yesterday"}},
		{"time-end", FilterOptions{Output: outPath, TimeEnd: "2026-13-01"}},
		{"layer", FilterOptions{Output: outPath, Layer: "wire"}},
		{"direction", FilterOptions{Output: outPath, Direction: "up"}},
		{"category", FilterOptions{Output: outPath, Category: "message"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RunFilter(path, tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}
