// Package httpcoding implements the packet <-> raw HTTP byte coding
// support components (spec.md §9's "packet wire format ... used by
// reader/writer support components" extends naturally to HTTP),
// grounded on original_source's src/nodes/HttpRequestExtractor.cpp and
// src/nodes/HttpResponseWriter.cpp. Rather than hand-rolling a CRLF
// header scanner the way the original does over its own MemoryStream
// type, the decode half goes through stdlib net/http's own request
// parser (bufio.Reader + http.ReadRequest) — net/http is the one
// library in the whole ecosystem that IS the HTTP/1.1 message grammar,
// so reimplementing it by hand here would be the non-idiomatic choice.
package httpcoding

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/vdodev-go/flowmesh/buffer"
	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

// Channels RequestDecoder emits on.
const (
	ChannelNewRequest   = packet.Channel("New Request")
	ChannelBodyData     = packet.Channel("Body Data")
	ChannelRequestEnded = packet.Channel("Request Ended")
)

// Channel ResponseEncoder emits on.
const ChannelHTTPData = packet.Channel("Http Data")

// Parameter keys shared between RequestDecoder and ResponseEncoder.
const (
	ParamHTTPMethod       = "httpMethod"
	ParamHTTPPath         = "httpPath"
	ParamHTTPVersion      = "httpVersion"
	ParamHTTPHeaders      = "httpHeaders"
	ParamHTTPRequestID    = "httpRequestId"
	ParamHTTPStatusCode   = "httpStatusCode"
	ParamHTTPStatusReason = "httpStatusReason"
)

// RequestDecoder accumulates incoming byte buffers until they hold a
// complete HTTP/1.1 request, then emits the parsed headers on
// ChannelNewRequest and the body (if any) on ChannelBodyData.
// ChannelRequestEnded is emitted only when EndRequest is called; the
// decoder does not emit it on its own after the body arrives. One
// RequestDecoder handles exactly one request at a time; reset() begins
// the next — matching original_source's per-instance mHeaderData reset,
// which relies on a context router to hand each connection its own
// instance.
type RequestDecoder struct {
	component.Base

	pending     bytes.Buffer
	requestID   string
	sentHeaders bool
}

// NewRequestDecoder constructs a RequestDecoder ready for its first
// request.
func NewRequestDecoder() *RequestDecoder {
	d := &RequestDecoder{}
	d.Base = component.NewBase("Http Request Extractor")
	d.reset()
	return d
}

func (d *RequestDecoder) reset() {
	d.pending.Reset()
	d.sentHeaders = false
	d.requestID = uuid.NewString()
}

func (d *RequestDecoder) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	return d.handle(pp)
}

func (d *RequestDecoder) handle(pp packet.PathablePacket) error {
	for _, buf := range pp.Packet.Buffers {
		d.pending.Write(buf.Bytes())
	}

	if d.sentHeaders {
		return d.flushBody(pp.Pusher)
	}

	reader := bufio.NewReader(bytes.NewReader(d.pending.Bytes()))
	req, err := http.ReadRequest(reader)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		return fmt.Errorf("httpcoding: parsing request headers: %w", err)
	}

	headers := param.New()
	for k, v := range req.Header {
		if len(v) > 0 {
			headers.Set(k, v[0])
		}
	}

	p := param.New()
	p.Set(ParamHTTPMethod, req.Method)
	p.Set(ParamHTTPPath, req.URL.RequestURI())
	p.Set(ParamHTTPVersion, req.Proto)
	p.Set(ParamHTTPHeaders, headers.Map())
	p.Set(ParamHTTPRequestID, d.requestID)

	if err := pp.Pusher.Push(ChannelNewRequest, packet.New(p)); err != nil {
		return err
	}
	d.sentHeaders = true

	remaining := make([]byte, reader.Buffered())
	_, _ = io.ReadFull(reader, remaining)
	d.pending.Reset()
	d.pending.Write(remaining)

	if d.pending.Len() > 0 {
		return d.flushBody(pp.Pusher)
	}
	return nil
}

func (d *RequestDecoder) flushBody(pusher packet.Pusher) error {
	if d.pending.Len() == 0 {
		return nil
	}
	body := append([]byte(nil), d.pending.Bytes()...)
	d.pending.Reset()

	p := param.New()
	p.Set(ParamHTTPRequestID, d.requestID)
	if err := pusher.Push(ChannelBodyData, packet.New(p, buffer.New(body))); err != nil {
		return err
	}
	return nil
}

// EndRequest emits ChannelRequestEnded for the request currently in
// progress and resets state for the next one. Call this when the
// transport signals end-of-request (e.g. connection close, or a known
// Content-Length has been fully consumed).
func (d *RequestDecoder) EndRequest(pusher packet.Pusher) error {
	if !d.sentHeaders {
		return nil
	}
	p := param.New()
	p.Set(ParamHTTPRequestID, d.requestID)
	err := pusher.Push(ChannelRequestEnded, packet.New(p))
	d.reset()
	return err
}

// ResponseEncoder renders a packet describing an HTTP response
// (status code, optional reason, headers, and the response body as the
// packet's first buffer) into raw HTTP/1.1 response bytes on
// ChannelHTTPData. Grounded on original_source's
// src/nodes/HttpResponseWriter.cpp; uses stdlib http.Response.Write
// instead of hand-formatting status line and header text.
type ResponseEncoder struct {
	component.Base
}

// NewResponseEncoder constructs a ResponseEncoder.
func NewResponseEncoder() *ResponseEncoder {
	e := &ResponseEncoder{}
	e.Base = component.NewBase("Http Response Writer")
	return e
}

func (e *ResponseEncoder) HandlePathablePacket(ctx context.Context, id packet.PathableId, pp packet.PathablePacket) error {
	statusCode := 200
	if v, ok := pp.Packet.Parameters.Get(ParamHTTPStatusCode); ok {
		switch n := v.(type) {
		case float64:
			statusCode = int(n)
		case string:
			if parsed, err := strconv.Atoi(n); err == nil {
				statusCode = parsed
			}
		}
	}

	header := http.Header{}
	if raw, ok := pp.Packet.Parameters.Get(ParamHTTPHeaders); ok {
		if m, ok := raw.(map[string]any); ok {
			for k, v := range m {
				if s, ok := v.(string); ok {
					header.Set(k, s)
				}
			}
		}
	}

	var body []byte
	if len(pp.Packet.Buffers) > 0 {
		body = pp.Packet.Buffers[0].Bytes()
	}

	resp := &http.Response{
		StatusCode:    statusCode,
		Status:        statusText(statusCode, pp.Packet),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}

	var out bytes.Buffer
	if err := resp.Write(&out); err != nil {
		return fmt.Errorf("httpcoding: writing response: %w", err)
	}

	return pp.Pusher.Push(ChannelHTTPData, packet.New(param.New(), buffer.New(out.Bytes())))
}

func statusText(code int, pkt packet.Packet) string {
	if reason, ok := pkt.Parameters.GetString(ParamHTTPStatusReason); ok {
		return fmt.Sprintf("%d %s", code, reason)
	}
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}
