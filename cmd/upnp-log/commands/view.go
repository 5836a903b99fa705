// Package commands implements the upnp-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/renderkit/upnp-go/pkg/log"
)

// maxBodyLines bounds how much of a captured body view prints.
const maxBodyLines = 20

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
	DeviceUDN string
	SID       string
	Method    string
	ShowBody  bool
}

func (f ViewFilter) logFilter() log.Filter {
	return log.Filter{
		Layer:     f.Layer,
		Direction: f.Direction,
		Category:  f.Category,
		DeviceUDN: f.DeviceUDN,
		SID:       f.SID,
		Method:    f.Method,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event, showBody bool) {
	// Header line: timestamp [xchg:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [xchg:%s] %-3s %s %s\n",
		ts, shortenID(event.ExchangeID), event.Direction.String(), event.Layer.String(), eventLabel(event))

	if event.RemoteAddr != "" {
		fmt.Fprintf(w, "  Remote: %s\n", event.RemoteAddr)
	}
	if event.DeviceUDN != "" {
		fmt.Fprintf(w, "  Device: %s\n", event.DeviceUDN)
	}
	if event.SID != "" {
		fmt.Fprintf(w, "  SID: %s\n", event.SID)
	}

	switch {
	case event.Exchange != nil:
		formatExchangeDetails(w, event.Exchange, showBody)
	case event.Notify != nil:
		formatNotifyDetails(w, event.Notify)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// eventLabel names the payload of an event for header lines and exports.
func eventLabel(event log.Event) string {
	switch {
	case event.Exchange != nil:
		if event.Exchange.StatusCode != nil {
			return fmt.Sprintf("%s %d", event.Exchange.Method, *event.Exchange.StatusCode)
		}
		return event.Exchange.Method
	case event.Notify != nil:
		return "Notify"
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenID returns the first 8 characters of an exchange ID.
func shortenID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatExchangeDetails writes request/response details.
func formatExchangeDetails(w io.Writer, x *log.ExchangeEvent, showBody bool) {
	if x.URL != "" {
		fmt.Fprintf(w, "  URL: %s\n", x.URL)
	}
	if x.Duration != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*x.Duration))
	}
	for _, k := range sortedKeys(x.Headers) {
		fmt.Fprintf(w, "  %s: %s\n", k, x.Headers[k])
	}
	if x.BodySize > 0 {
		fmt.Fprintf(w, "  Body: %d bytes", x.BodySize)
		if x.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
	if showBody && len(x.Body) > 0 {
		formatBody(w, x.Body)
	}
}

// formatBody prints a captured body, indented. Non-UTF-8 bodies are
// summarized.
func formatBody(w io.Writer, body []byte) {
	if !utf8.Valid(body) {
		fmt.Fprintln(w, "    <binary>")
		return
	}
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	for i, line := range lines {
		if i == maxBodyLines {
			fmt.Fprintf(w, "    ... %d more lines\n", len(lines)-maxBodyLines)
			return
		}
		fmt.Fprintf(w, "    %s\n", strings.TrimRight(line, "\r"))
	}
}

// formatNotifyDetails writes a decoded property set.
func formatNotifyDetails(w io.Writer, n *log.NotifyEvent) {
	fmt.Fprintf(w, "  SEQ: %d", n.Seq)
	if !n.Routed {
		fmt.Fprint(w, " (unrouted)")
	}
	fmt.Fprintln(w)
	for _, k := range sortedKeys(n.Properties) {
		fmt.Fprintf(w, "  %s = %s\n", k, oneLine(n.Properties[k], 120))
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// oneLine flattens s and cuts it to n bytes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	return parseLayer(s)
}

// parseLayer parses a layer string (case-insensitive).
func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "http":
		return log.LayerHTTP, nil
	case "gena":
		return log.LayerGENA, nil
	case "service":
		return log.LayerService, nil
	case "soap":
		return log.LayerSOAP, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be http, gena, service, or soap)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	return parseDirection(s)
}

// parseDirection parses a direction string (case-insensitive).
func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "exchange":
		return log.CategoryExchange, nil
	case "notify":
		return log.CategoryNotify, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be exchange, notify, state, or error)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.logFilter())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event, filter.ShowBody)
	}

	return nil
}
