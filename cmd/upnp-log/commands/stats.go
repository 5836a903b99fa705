package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/renderkit/upnp-go/pkg/log"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Methods           map[string]int
	Statuses          map[int]int
	Devices           map[string]*DeviceStats
	Notifies          int
	Unrouted          int
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// DeviceStats holds statistics for one device UDN.
type DeviceStats struct {
	FirstSeen     time.Time
	LastSeen      time.Time
	Events        int
	Notifies      int
	Errors        int
	Subscriptions map[string]struct{}
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Methods:           make(map[string]int),
		Statuses:          make(map[int]int),
		Devices:           make(map[string]*DeviceStats),
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if x := event.Exchange; x != nil {
		// Count requests only; responses carry the same method.
		if x.StatusCode == nil {
			s.Methods[x.Method]++
		} else {
			s.Statuses[*x.StatusCode]++
		}
	}
	if event.Notify != nil {
		s.Notifies++
		if !event.Notify.Routed {
			s.Unrouted++
		}
	}
	if event.Error != nil {
		s.Errors++
	}

	if event.DeviceUDN == "" {
		return
	}
	dev, ok := s.Devices[event.DeviceUDN]
	if !ok {
		dev = &DeviceStats{
			FirstSeen:     event.Timestamp,
			LastSeen:      event.Timestamp,
			Subscriptions: make(map[string]struct{}),
		}
		s.Devices[event.DeviceUDN] = dev
	}
	dev.Events++
	if event.Timestamp.After(dev.LastSeen) {
		dev.LastSeen = event.Timestamp
	}
	if event.SID != "" {
		dev.Subscriptions[event.SID] = struct{}{}
	}
	if event.Notify != nil {
		dev.Notifies++
	}
	if event.Error != nil {
		dev.Errors++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== UPnP Protocol Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerHTTP, log.LayerGENA, log.LayerSOAP, log.LayerService} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryExchange, log.CategoryNotify, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Methods) > 0 {
		fmt.Fprintln(w, "Requests by Method:")
		methods := make([]string, 0, len(stats.Methods))
		for m := range stats.Methods {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, m := range methods {
			fmt.Fprintf(w, "  %-12s %d\n", m+":", stats.Methods[m])
		}
		fmt.Fprintln(w)
	}

	if len(stats.Statuses) > 0 {
		fmt.Fprintln(w, "Responses by Status:")
		codes := make([]int, 0, len(stats.Statuses))
		for c := range stats.Statuses {
			codes = append(codes, c)
		}
		sort.Ints(codes)
		for _, c := range codes {
			fmt.Fprintf(w, "  %-12s %d\n", fmt.Sprintf("%d:", c), stats.Statuses[c])
		}
		fmt.Fprintln(w)
	}

	if stats.Notifies > 0 {
		fmt.Fprintf(w, "Notifications: %d", stats.Notifies)
		if stats.Unrouted > 0 {
			fmt.Fprintf(w, " (%d unrouted)", stats.Unrouted)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Devices: %d\n", len(stats.Devices))
	if len(stats.Devices) > 0 {
		udns := make([]string, 0, len(stats.Devices))
		for udn := range stats.Devices {
			udns = append(udns, udn)
		}
		sort.Slice(udns, func(i, j int) bool {
			return stats.Devices[udns[i]].FirstSeen.Before(stats.Devices[udns[j]].FirstSeen)
		})

		fmt.Fprintln(w)
		for _, udn := range udns {
			d := stats.Devices[udn]
			duration := d.LastSeen.Sub(d.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  %s: %d events, duration %s\n", udn, d.Events, duration)
			if len(d.Subscriptions) > 0 {
				fmt.Fprintf(w, "           Subscriptions: %d\n", len(d.Subscriptions))
			}
			if d.Notifies > 0 {
				fmt.Fprintf(w, "           Notifications: %d\n", d.Notifies)
			}
			if d.Errors > 0 {
				fmt.Fprintf(w, "           Errors: %d\n", d.Errors)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
