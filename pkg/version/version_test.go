package version

import (
	"strings"
	"testing"
)

func TestParseValid(t *testing.T) {
	tests := []struct {
		input string
		major uint16
		minor uint16
	}{
		{"1.0", 1, 0},
		{"1.1", 1, 1},
		{" 2.0\n", 2, 0},
		{"10.23", 10, 23},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if v.Major != tt.major || v.Minor != tt.minor {
				t.Errorf("Parse(%q) = %v, want %d.%d", tt.input, v, tt.major, tt.minor)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "1", "abc", "1.0.0", ".1", "1.", "-1.0", "70000.0"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", in)
		}
	}
}

func TestCompatible(t *testing.T) {
	v10 := SpecVersion{1, 0}
	v11 := SpecVersion{1, 1}
	v20 := SpecVersion{2, 0}

	if !v10.Compatible(v11) {
		t.Error("1.0 should be compatible with 1.1")
	}
	if v10.Compatible(v20) {
		t.Error("1.0 should not be compatible with 2.0")
	}
}

func TestParseProduct(t *testing.T) {
	v, err := ParseProduct("Linux UPnP/1.0 Sonos/70.3-35220 (ZPS9)")
	if err != nil {
		t.Fatalf("ParseProduct failed: %v", err)
	}
	if v.String() != "1.0" {
		t.Errorf("version = %s, want 1.0", v)
	}

	if _, err := ParseProduct("Microsoft-HTTPAPI/2.0"); err == nil {
		t.Error("expected error for header without UPnP token")
	}
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	if !strings.Contains(ua, "UPnP/"+Architecture) {
		t.Errorf("UserAgent() = %q, missing UPnP token", ua)
	}
	if !strings.HasSuffix(ua, Library+"/"+LibraryVersion) {
		t.Errorf("UserAgent() = %q, missing library token", ua)
	}
	v, err := ParseProduct(ua)
	if err != nil || v.String() != Architecture {
		t.Errorf("UserAgent() not parseable by ParseProduct: %v %v", v, err)
	}
}
