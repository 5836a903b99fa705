package eventing

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/renderkit/upnp-go/pkg/log"
	"github.com/renderkit/upnp-go/pkg/version"
)

// exchange sends a body-less GENA request and returns the response with its
// body drained and closed. GENA header keys are sent verbatim.
func (e *Eventing) exchange(ctx context.Context, method, target string, gena map[string]string, sid string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range gena {
		req.Header[k] = []string{v}
	}
	req.Header.Set("User-Agent", version.UserAgent())

	exchangeID := uuid.NewString()
	e.captureRequest(exchangeID, req, gena, sid)

	start := e.clock.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		e.captureError(exchangeID, req, sid, err)
		return nil, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	e.captureResponse(exchangeID, req, resp, sid, e.clock.Since(start))
	return resp, nil
}

func is2xx(code int) bool {
	return code >= 200 && code < 300
}

func (e *Eventing) captureRequest(id string, req *http.Request, gena map[string]string, sid string) {
	if e.cfg.ProtocolLogger == nil {
		return
	}
	log.Emit(e.cfg.ProtocolLogger, log.Event{
		ExchangeID: id,
		Direction:  log.DirectionOut,
		Layer:      log.LayerHTTP,
		Category:   log.CategoryExchange,
		RemoteAddr: req.URL.Host,
		SID:        sid,
		Exchange:   &log.ExchangeEvent{Method: req.Method, URL: req.URL.String(), Headers: gena},
	})
}

func (e *Eventing) captureResponse(id string, req *http.Request, resp *http.Response, sid string, rtt time.Duration) {
	if e.cfg.ProtocolLogger == nil {
		return
	}
	code := resp.StatusCode
	headers := map[string]string{}
	if v := resp.Header.Get(HeaderSID); v != "" {
		headers[HeaderSID] = v
	}
	if v := resp.Header.Get(HeaderTimeout); v != "" {
		headers[HeaderTimeout] = v
	}
	if sid == "" {
		sid = headers[HeaderSID]
	}
	log.Emit(e.cfg.ProtocolLogger, log.Event{
		ExchangeID: id,
		Direction:  log.DirectionIn,
		Layer:      log.LayerHTTP,
		Category:   log.CategoryExchange,
		RemoteAddr: req.URL.Host,
		SID:        sid,
		Exchange: &log.ExchangeEvent{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: &code,
			Headers:    headers,
			Duration:   &rtt,
		},
	})
}

func (e *Eventing) captureError(id string, req *http.Request, sid string, err error) {
	if e.cfg.ProtocolLogger == nil {
		return
	}
	log.Emit(e.cfg.ProtocolLogger, log.Event{
		ExchangeID: id,
		Direction:  log.DirectionIn,
		Layer:      log.LayerHTTP,
		Category:   log.CategoryError,
		RemoteAddr: req.URL.Host,
		SID:        sid,
		Error:      &log.ErrorEventData{Layer: log.LayerHTTP, Message: err.Error(), Context: req.Method},
	})
}
