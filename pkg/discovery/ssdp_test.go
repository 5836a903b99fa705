package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/koron/go-ssdp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchCall struct {
	st        string
	waitSec   int
	localAddr string
}

// fakeSearch returns a searchFunc that records its arguments and answers
// with services.
func fakeSearch(calls *[]searchCall, services ...ssdp.Service) searchFunc {
	return func(st string, waitSec int, localAddr string) ([]ssdp.Service, error) {
		*calls = append(*calls, searchCall{st, waitSec, localAddr})
		return services, nil
	}
}

func TestSearchCollectsDistinctResponses(t *testing.T) {
	var calls []searchCall
	s := NewSearcher(SearchConfig{LocalAddr: "10.0.0.2:0"})
	s.search = fakeSearch(&calls,
		ssdp.Service{Type: SearchMediaRenderer, USN: "uuid:RINCON_1::" + SearchMediaRenderer,
			Location: "http://10.0.0.5:1400/xml/device_description.xml", Server: "Linux UPnP/1.0 Sonos/70.3"},
		ssdp.Service{Type: SearchMediaRenderer, USN: "uuid:RINCON_1::" + SearchMediaRenderer,
			Location: "http://10.0.0.5:1400/xml/device_description.xml"},
		ssdp.Service{Type: SearchMediaRenderer, USN: "uuid:RINCON_2::" + SearchMediaRenderer,
			Location: "http://10.0.0.6:1400/xml/device_description.xml"},
		ssdp.Service{USN: "uuid:nolocation"},
	)

	found, err := s.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, "http://10.0.0.5:1400/xml/device_description.xml", found[0].Location)
	assert.Equal(t, "uuid:RINCON_1", found[0].UDN())
	assert.Equal(t, SearchMediaRenderer, found[0].ST)
	assert.Equal(t, "Linux UPnP/1.0 Sonos/70.3", found[0].Server)
	assert.Equal(t, SourceSSDP, found[0].Source)
	assert.Equal(t, "10.0.0.5:1400", found[0].Addr)
	assert.False(t, found[0].SeenAt.IsZero())
	assert.Equal(t, "uuid:RINCON_2", found[1].UDN())

	require.Len(t, calls, 1)
	assert.Equal(t, searchCall{SearchMediaRenderer, 2, "10.0.0.2:0"}, calls[0])
}

func TestSearchWithoutUSNUsesLocation(t *testing.T) {
	var calls []searchCall
	s := NewSearcher(SearchConfig{MX: 1})
	s.search = fakeSearch(&calls, ssdp.Service{Location: "http://h/d.xml"})

	found, err := s.Search(context.Background(), SearchAll)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "http://h/d.xml", found[0].USN)
	assert.Equal(t, "", found[0].UDN())
	assert.Equal(t, searchCall{SearchAll, 1, ""}, calls[0])
}

func TestSearchError(t *testing.T) {
	s := NewSearcher(SearchConfig{})
	s.search = func(string, int, string) ([]ssdp.Service, error) {
		return nil, errors.New("no multicast interface")
	}

	_, err := s.Discover(context.Background())
	assert.ErrorContains(t, err, "no multicast interface")
}

func TestSearchStopsOnCancel(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	s := NewSearcher(SearchConfig{MX: 60})
	s.search = func(string, int, string) ([]ssdp.Service, error) {
		<-release
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	found, err := s.Search(ctx, SearchAll)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, found)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestAdvertisementUDN(t *testing.T) {
	assert.Equal(t, "uuid:abc", Advertisement{USN: "uuid:abc::urn:x"}.UDN())
	assert.Equal(t, "uuid:abc", Advertisement{USN: "uuid:abc"}.UDN())
	assert.Equal(t, "", Advertisement{USN: "Sonos-123._sonos._tcp"}.UDN())
}
