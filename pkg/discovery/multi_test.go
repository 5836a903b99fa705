package discovery_test

import (
	"context"
	"errors"
	"testing"

	"github.com/renderkit/upnp-go/pkg/discovery"
	"github.com/renderkit/upnp-go/pkg/discovery/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMultiFinderMergesByLocation(t *testing.T) {
	ssdp := mocks.NewMockFinder(t)
	mdns := mocks.NewMockFinder(t)

	ssdp.EXPECT().Discover(mock.Anything).Return([]discovery.Advertisement{
		{Location: "http://a/d.xml", USN: "uuid:a", Source: discovery.SourceSSDP},
	}, nil)
	mdns.EXPECT().Discover(mock.Anything).Return([]discovery.Advertisement{
		{Location: "http://a/d.xml", USN: "Sonos-A", Source: discovery.SourceMDNS},
		{Location: "http://b/d.xml", USN: "Sonos-B", Source: discovery.SourceMDNS},
	}, nil)

	found, err := discovery.MultiFinder{ssdp, mdns}.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, discovery.SourceSSDP, found[0].Source)
	assert.Equal(t, "http://b/d.xml", found[1].Location)
}

func TestMultiFinderPartialFailure(t *testing.T) {
	ok := mocks.NewMockFinder(t)
	broken := mocks.NewMockFinder(t)

	ok.EXPECT().Discover(mock.Anything).Return([]discovery.Advertisement{{Location: "http://a/d.xml"}}, nil)
	broken.EXPECT().Discover(mock.Anything).Return(nil, errors.New("no multicast"))

	found, err := discovery.MultiFinder{ok, broken}.Discover(context.Background())
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestMultiFinderAllFail(t *testing.T) {
	broken := mocks.NewMockFinder(t)
	broken.EXPECT().Discover(mock.Anything).Return(nil, errors.New("no multicast"))

	_, err := discovery.MultiFinder{broken}.Discover(context.Background())
	assert.ErrorContains(t, err, "no multicast")
}
