package control

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"go/token"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huin/goupnp/soap"
	"github.com/sony/gobreaker"

	"github.com/renderkit/upnp-go/pkg/log"
	"github.com/renderkit/upnp-go/pkg/metrics"
	"github.com/renderkit/upnp-go/pkg/version"
)

// Arg is one input argument of an action. Order matters to some devices.
type Arg struct {
	Name  string
	Value string
}

// Config configures a Client.
type Config struct {
	// HTTPClient supplies the transport and overall timeout of requests.
	// Default: client with Timeout.
	HTTPClient *http.Client

	// Timeout bounds a single action. Default: 10 seconds.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive transport failures that
	// open a host's breaker. Default: 5.
	FailureThreshold uint32

	// OpenTimeout is how long a breaker stays open before letting a probe
	// request through. Default: 30 seconds.
	OpenTimeout time.Duration

	// MaxResponseBytes caps response bodies. Default: 256 KiB.
	MaxResponseBytes int64

	// Logger is used for operational logging. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger receives request/response captures. Nil disables capture.
	ProtocolLogger log.Logger

	// Metrics records action outcomes and breaker states. Nil disables metrics.
	Metrics *metrics.Metrics
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		MaxResponseBytes: 256 << 10,
	}
}

// Client invokes SOAP actions.
type Client struct {
	config Config
	client *http.Client

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewClient creates a Client; zero config fields take their defaults.
func NewClient(config Config) *Client {
	def := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = def.OpenTimeout
	}
	if config.MaxResponseBytes <= 0 {
		config.MaxResponseBytes = def.MaxResponseBytes
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	return &Client{
		config:   config,
		client:   client,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Invoke calls action on the service at controlURL and returns the output
// arguments by name. A UPnP fault is returned as *SOAPError; faults do not
// count against the host's breaker since the device did answer.
func (c *Client) Invoke(ctx context.Context, controlURL, serviceType, action string, args []Arg) (map[string]string, error) {
	u, err := url.Parse(controlURL)
	if err != nil {
		return nil, fmt.Errorf("control: bad control URL %q: %w", controlURL, err)
	}

	start := time.Now()
	var (
		out   map[string]string
		fault error
	)
	_, err = c.breaker(u.Host).Execute(func() (interface{}, error) {
		res, err := c.do(ctx, u, serviceType, action, args)
		var se *SOAPError
		if errors.As(err, &se) {
			fault = err
			return nil, nil
		}
		out = res
		return nil, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %s: %v", ErrUnavailable, u.Host, err)
	}
	if err == nil {
		err = fault
	}
	c.config.Metrics.ControlAction(action, time.Since(start), err)
	if err != nil {
		c.debugLog("action failed", "action", action, "host", u.Host, "error", err)
		return nil, err
	}
	return out, nil
}

// BreakerState returns the breaker state for a device host.
func (c *Client) BreakerState(host string) gobreaker.State {
	return c.breaker(host).State()
}

func (c *Client) breaker(host string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[host]; ok {
		return cb
	}
	threshold := c.config.FailureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Timeout:     c.config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.warnLog("device breaker changed state", "host", name, "from", from.String(), "to", to.String())
			c.config.Metrics.SetBreakerState(name, breakerValue(to))
		},
	})
	c.breakers[host] = cb
	return cb
}

func breakerValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// do performs one action exchange. A UPnP fault is returned as *SOAPError
// whatever the HTTP status; devices send faults with 500.
func (c *Client) do(ctx context.Context, u *url.URL, serviceType, action string, args []Arg) (map[string]string, error) {
	in, err := actionArgs(args)
	if err != nil {
		return nil, fmt.Errorf("control: %s: %w", action, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	rt := &exchange{client: c, action: action, id: uuid.NewString()}
	sc := soap.NewSOAPClient(*u)
	sc.HTTPClient = http.Client{Transport: rt, Timeout: c.client.Timeout}

	var out outArgs
	err = sc.PerformActionCtx(ctx, serviceType, action, in, &out)

	var fe *soap.SOAPFaultError
	switch {
	case errors.As(err, &fe):
		return nil, faultError(action, fe)
	case rt.err != nil:
		return nil, fmt.Errorf("control: %s: %w", action, rt.err)
	case rt.status != http.StatusOK:
		return nil, &StatusError{Action: action, Code: rt.status}
	case err == nil:
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
}

func faultError(action string, fe *soap.SOAPFaultError) *SOAPError {
	desc := fe.Detail.UPnPError.ErrorDescription
	if desc == "" {
		desc = fe.FaultString
	}
	return &SOAPError{Action: action, Code: fe.Detail.UPnPError.Errorcode, Description: strings.TrimSpace(desc)}
}

// actionArgs builds the input struct for an action. Arguments become string
// fields in order; names that are not exported identifiers get a soap tag.
func actionArgs(args []Arg) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	fields := make([]reflect.StructField, len(args))
	seen := make(map[string]bool, len(args))
	for i, a := range args {
		if a.Name == "" || seen[a.Name] {
			return nil, fmt.Errorf("invalid argument name %q", a.Name)
		}
		seen[a.Name] = true
		name := a.Name
		if !token.IsIdentifier(name) || !token.IsExported(name) {
			name = fmt.Sprintf("Arg%d", i)
		}
		fields[i] = reflect.StructField{
			Name: name,
			Type: reflect.TypeOf(""),
			Tag:  reflect.StructTag(fmt.Sprintf("soap:%q", a.Name)),
		}
	}
	v := reflect.New(reflect.StructOf(fields)).Elem()
	for i, a := range args {
		v.Field(i).SetString(a.Value)
	}
	return v.Addr().Interface(), nil
}

// outArgs collects the output arguments of an action response by name.
type outArgs map[string]string

func (o *outArgs) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var a struct {
		Args []struct {
			XMLName xml.Name
			Value   string `xml:",chardata"`
		} `xml:",any"`
	}
	if err := d.DecodeElement(&a, &start); err != nil {
		return err
	}
	out := make(outArgs, len(a.Args))
	for _, arg := range a.Args {
		out[arg.XMLName.Local] = arg.Value
	}
	*o = out
	return nil
}

// exchange is the transport of one action call. It stamps the User-Agent,
// bounds and captures the response body, and remembers what the SOAP layer
// reports only as text: the transport error and the HTTP status.
type exchange struct {
	client *Client
	action string
	id     string

	status int
	err    error
}

func (e *exchange) RoundTrip(req *http.Request) (*http.Response, error) {
	c := e.client
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", version.UserAgent())

	var body []byte
	if req.GetBody != nil {
		if r, err := req.GetBody(); err == nil {
			body, _ = io.ReadAll(r)
			r.Close()
		}
	}
	c.capture(e.id, log.DirectionOut, req, nil, body, 0)

	start := time.Now()
	resp, err := c.transport().RoundTrip(req)
	if err != nil {
		e.err = err
		c.captureError(e.id, req, e.action, err)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseBytes))
	if err != nil {
		e.err = fmt.Errorf("read response: %w", err)
		c.captureError(e.id, req, e.action, e.err)
		return nil, e.err
	}
	e.status = resp.StatusCode
	c.capture(e.id, log.DirectionIn, req, resp, data, time.Since(start))

	resp.Body = io.NopCloser(bytes.NewReader(data))
	resp.ContentLength = int64(len(data))
	return resp, nil
}

func (c *Client) transport() http.RoundTripper {
	if c.client.Transport != nil {
		return c.client.Transport
	}
	return http.DefaultTransport
}

func (c *Client) capture(id string, dir log.Direction, req *http.Request, resp *http.Response, body []byte, rtt time.Duration) {
	if c.config.ProtocolLogger == nil {
		return
	}
	ex := &log.ExchangeEvent{
		Method:  req.Method,
		URL:     req.URL.String(),
		Headers: map[string]string{"SOAPACTION": soapAction(req.Header)},
	}
	ex.SetBody(body)
	if resp != nil {
		code := resp.StatusCode
		ex.StatusCode = &code
		ex.Duration = &rtt
	}
	log.Emit(c.config.ProtocolLogger, log.Event{
		ExchangeID: id,
		Direction:  dir,
		Layer:      log.LayerSOAP,
		Category:   log.CategoryExchange,
		RemoteAddr: req.URL.Host,
		Exchange:   ex,
	})
}

// soapAction reads the SOAPACTION header, which the SOAP client sets
// without canonicalizing the key.
func soapAction(h http.Header) string {
	if v, ok := h["SOAPACTION"]; ok && len(v) > 0 {
		return v[0]
	}
	return h.Get("SOAPACTION")
}

func (c *Client) captureError(id string, req *http.Request, action string, err error) {
	if c.config.ProtocolLogger == nil {
		return
	}
	log.Emit(c.config.ProtocolLogger, log.Event{
		ExchangeID: id,
		Direction:  log.DirectionIn,
		Layer:      log.LayerSOAP,
		Category:   log.CategoryError,
		RemoteAddr: req.URL.Host,
		Error:      &log.ErrorEventData{Layer: log.LayerSOAP, Message: err.Error(), Context: action},
	})
}

func (c *Client) debugLog(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, args...)
	}
}

func (c *Client) warnLog(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Warn(msg, args...)
	}
}
