// Command upnp-log is a tool for viewing and analyzing UPnP protocol captures.
//
// Capture files are written by upnp-controller with the -capture flag.
//
// Usage:
//
//	upnp-log <command> [flags] <file.ulog>
//
// Commands:
//
//	view     View capture in human-readable format
//	export   Export capture to JSONL or CSV format
//	filter   Filter capture and write to new file
//	stats    Show statistics about the capture
//
// Examples:
//
//	# View all events
//	upnp-log view controller.ulog
//
//	# View GENA notifications of one subscription
//	upnp-log view -layer gena -sid uuid:RINCON_1234-sub-1 controller.ulog
//
//	# View SOAP requests with their bodies
//	upnp-log view -layer soap -direction out -body controller.ulog
//
//	# Export to CSV
//	upnp-log export -format csv -o events.csv controller.ulog
//
//	# Keep only one device's events
//	upnp-log filter -udn uuid:RINCON_1234 -o kitchen.ulog controller.ulog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/renderkit/upnp-go/cmd/upnp-log/commands"
)

const usage = `upnp-log - UPnP Protocol Capture Analyzer

Usage:
  upnp-log <command> [flags] <file.ulog>

Commands:
  view     View capture in human-readable format
  export   Export capture to JSONL or CSV format
  filter   Filter capture and write to new file
  stats    Show statistics about the capture

Use "upnp-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// newCommandFlags creates a flag set whose usage prints the command summary.
func newCommandFlags(name, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "upnp-log %s - %s\n\nUsage:\n  upnp-log %s [flags] <file.ulog>\n\nFlags:\n", name, summary, name)
		fs.PrintDefaults()
	}
	return fs
}

// capturePath returns the single positional argument or exits.
func capturePath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs := newCommandFlags("view", "View capture in human-readable format")

	layer := fs.String("layer", "", "Filter by layer (http, gena, soap, service)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (exchange, notify, state, error)")
	udn := fs.String("udn", "", "Filter by device UDN")
	sid := fs.String("sid", "", "Filter by subscription ID")
	method := fs.String("method", "", "Filter exchanges by HTTP method")
	body := fs.Bool("body", false, "Print captured bodies")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := capturePath(fs)

	filter := commands.ViewFilter{
		DeviceUDN: *udn,
		SID:       *sid,
		Method:    *method,
		ShowBody:  *body,
	}

	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			fail(err)
		}
		filter.Layer = &l
	}

	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fail(err)
		}
		filter.Direction = &d
	}

	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fail(err)
		}
		filter.Category = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := newCommandFlags("export", "Export capture to JSONL or CSV format")

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := capturePath(fs)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := newCommandFlags("filter", "Filter capture and write to new file")

	output := fs.String("o", "", "Output file (required)")
	exchangeID := fs.String("exchange-id", "", "Filter by exchange ID")
	udn := fs.String("udn", "", "Filter by device UDN")
	sid := fs.String("sid", "", "Filter by subscription ID")
	method := fs.String("method", "", "Filter exchanges by HTTP method")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	layer := fs.String("layer", "", "Filter by layer (http, gena, soap, service)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (exchange, notify, state, error)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := capturePath(fs)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(path, commands.FilterOptions{
		Output:     *output,
		ExchangeID: *exchangeID,
		DeviceUDN:  *udn,
		SID:        *sid,
		Method:     *method,
		TimeStart:  *timeStart,
		TimeEnd:    *timeEnd,
		Layer:      *layer,
		Direction:  *direction,
		Category:   *category,
	})
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, *output)
}

func runStats(args []string) {
	fs := newCommandFlags("stats", "Show statistics about the capture")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := capturePath(fs)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
