// Package interactive provides the interactive command-line interface
// for the UPnP controller.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/renderkit/upnp-go/pkg/service"
)

// Controller handles interactive mode for upnp-controller.
type Controller struct {
	svc *service.ControllerService
	rl  *readline.Instance
	out io.Writer
}

// New creates a new interactive controller handler. The readline instance
// exists right away so that log output can be routed through Stdout before
// the service starts; Bind attaches the service.
func New() (*Controller, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "upnp> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Controller{rl: rl, out: rl.Stdout()}, nil
}

// Bind sets the service the commands operate on.
func (c *Controller) Bind(svc *service.ControllerService) {
	c.svc = svc
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Controller) Stdout() io.Writer {
	if c.rl == nil {
		return os.Stdout
	}
	return c.rl.Stdout()
}

// Run starts the interactive command loop.
func (c *Controller) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if c.execute(ctx, line) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// execute runs one command line and reports whether the shell should exit.
func (c *Controller) execute(ctx context.Context, line string) bool {
	parts := splitArgs(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "devices", "list", "ls":
		c.cmdDevices()

	case "states", "s":
		c.cmdStates(ctx, args)

	case "subs", "subscriptions":
		c.cmdSubscriptions()

	case "refresh", "discover":
		c.cmdRefresh(ctx)

	case "play":
		c.cmdButton(ctx, service.CommandPlay, args)
	case "pause":
		c.cmdButton(ctx, service.CommandPause, args)
	case "stop":
		c.cmdButton(ctx, service.CommandStop, args)
	case "next":
		c.cmdButton(ctx, service.CommandNext, args)
	case "prev", "previous":
		c.cmdButton(ctx, service.CommandPrevious, args)

	case "volume", "vol":
		c.cmdValue(ctx, service.CommandVolume, "volume <device> <0-100>", args)
	case "mute":
		c.cmdValue(ctx, service.CommandMute, "mute <device> <on|off>", args)
	case "seek":
		c.cmdValue(ctx, service.CommandSeek, "seek <device> <H:MM:SS|track|UNIT target>", args)
	case "uri", "url":
		c.cmdValue(ctx, service.CommandURI, "uri <device> <url>", args)

	case "quit", "exit", "q":
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Controller) printHelp() {
	fmt.Fprintln(c.out, `
UPnP Controller Commands:
  Devices:
    devices                           - List known renderers
    states <device> [filter]          - Show stored states of a device
    subs                              - Show event subscriptions
    refresh                           - Run a discovery round now

  Transport:
    play|pause|stop|next|prev <device>
    seek <device> <target>            - H:MM:SS, track number or "UNIT target"
    uri <device> <url>                - Set the transport URI

  Rendering:
    volume <device> <0-100>           - Set master volume
    mute <device> <on|off>            - Set master mute

  General:
    help                              - Show this help
    quit                              - Exit controller

  Devices are named by friendly name (quote names with spaces), UDN or id.`)
}

// cmdDevices handles the devices command.
func (c *Controller) cmdDevices() {
	devices := c.svc.Devices()
	if len(devices) == 0 {
		fmt.Fprintln(c.out, "No devices known")
		return
	}

	fmt.Fprintf(c.out, "\nKnown Devices (%d):\n", len(devices))
	fmt.Fprintln(c.out, "-------------------------------------------")
	for _, d := range devices {
		fmt.Fprintf(c.out, "  %s\n", d.FriendlyName)
		fmt.Fprintf(c.out, "      UDN: %s\n", d.UDN)
		fmt.Fprintf(c.out, "      Model: %s %s\n", d.Manufacturer, d.ModelName)
		fmt.Fprintf(c.out, "      Location: %s\n", d.Location)
		fmt.Fprintf(c.out, "      Services: %s\n", strings.Join(d.Services, ", "))
		fmt.Fprintf(c.out, "      Last seen: %s\n", d.LastSeen.Format("15:04:05"))
		fmt.Fprintln(c.out)
	}
}

// cmdStates handles the states command.
func (c *Controller) cmdStates(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: states <device> [filter]")
		return
	}
	info, err := c.svc.Device(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	states, err := c.svc.States(ctx, args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	filter := ""
	if len(args) > 1 {
		filter = strings.ToLower(args[1])
	}
	ids := make([]string, 0, len(states))
	for id := range states {
		rel := strings.TrimPrefix(id, info.ID+".")
		if filter != "" && !strings.Contains(strings.ToLower(rel), filter) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(c.out, "\n%s (%d states):\n", info.FriendlyName, len(ids))
	for _, id := range ids {
		st := states[id]
		ack := ""
		if !st.Ack {
			ack = " (pending)"
		}
		fmt.Fprintf(c.out, "  %-40s %s%s\n", strings.TrimPrefix(id, info.ID+"."), truncate(st.Value, 60), ack)
	}
}

// cmdSubscriptions handles the subs command.
func (c *Controller) cmdSubscriptions() {
	subs := c.svc.Subscriptions()
	if len(subs) == 0 {
		fmt.Fprintln(c.out, "No subscriptions")
		return
	}
	fmt.Fprintf(c.out, "\nSubscriptions (%d):\n", len(subs))
	for _, s := range subs {
		sid := s.SID
		if sid == "" {
			sid = "-"
		}
		fmt.Fprintf(c.out, "  %-20s %-18s %-10s %s", truncate(s.Device, 20), s.Service, s.State, sid)
		if s.Retries > 0 {
			fmt.Fprintf(c.out, " (retries: %d)", s.Retries)
		}
		fmt.Fprintln(c.out)
	}
}

// cmdRefresh handles the refresh command.
func (c *Controller) cmdRefresh(ctx context.Context) {
	fmt.Fprintln(c.out, "Discovering renderers...")
	rctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := c.svc.Refresh(rctx); err != nil {
		fmt.Fprintf(c.out, "Discovery error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%d device(s) known\n", len(c.svc.Devices()))
}

// cmdButton sends a transport command that takes no value.
func (c *Controller) cmdButton(ctx context.Context, name string, args []string) {
	if len(args) < 1 {
		fmt.Fprintf(c.out, "Usage: %s <device>\n", name)
		return
	}
	c.send(ctx, args[0], name, "true")
}

// cmdValue sends a command with a value; extra words are joined.
func (c *Controller) cmdValue(ctx context.Context, name, usage string, args []string) {
	if len(args) < 2 {
		fmt.Fprintf(c.out, "Usage: %s\n", usage)
		return
	}
	c.send(ctx, args[0], name, strings.Join(args[1:], " "))
}

func (c *Controller) send(ctx context.Context, device, name, value string) {
	if err := c.svc.Command(ctx, device, name, value); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s %s sent\n", name, value)
}

// splitArgs splits a command line on spaces, keeping double-quoted
// sections together.
func splitArgs(line string) []string {
	var (
		out    []string
		cur    strings.Builder
		quoted bool
		inWord bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			inWord = true
		case r == ' ' && !quoted:
			if inWord {
				out = append(out, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		out = append(out, cur.String())
	}
	return out
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
