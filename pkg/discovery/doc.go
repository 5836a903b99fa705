// Package discovery finds UPnP devices on the local network and reads their
// description documents.
//
// # SSDP
//
// Searcher sends an M-SEARCH request to the SSDP multicast group through
// go-ssdp and collects the responses that arrive within MX seconds.
// Responses are deduplicated by USN.
//
// # mDNS
//
// Some renderers (Sonos players in particular) also announce themselves via
// DNS-SD as _sonos._tcp with a "location" TXT entry that points at the same
// device description SSDP would have returned. MDNSBrowser turns those
// entries into Advertisements so both mechanisms feed the same pipeline.
//
// # Descriptions
//
// Fetcher downloads device descriptions and service descriptions (SCPD),
// resolving relative URLs against URLBase or the description location.
// Service.EventTarget yields the eventing.Target used to subscribe.
package discovery
