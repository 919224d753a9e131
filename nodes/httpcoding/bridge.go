package httpcoding

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/vdodev-go/flowmesh/buffer"
	"github.com/vdodev-go/flowmesh/component"
	"github.com/vdodev-go/flowmesh/errs"
	"github.com/vdodev-go/flowmesh/log"
	"github.com/vdodev-go/flowmesh/packet"
	"github.com/vdodev-go/flowmesh/param"
)

// Channel Bridge emits an inbound HTTP request on.
const ChannelInboundRequest = packet.Channel("Inbound Request")

// Bridge is a real HTTP ingress point in front of a graph: it runs a
// net/http server routed through gorilla/mux and wrapped in rs/cors,
// translating every matched request into a packet pushed onto
// ChannelInboundRequest and writing the response packet that comes back:
// its httpStatusCode parameter as the status and its first buffer as the
// body. Where RequestDecoder/ResponseEncoder
// work entirely in terms of packets (no real socket involved), Bridge
// is the component that actually terminates HTTP connections, and is
// the natural home for the mux/cors dependencies that a pure byte-level
// decoder has no use for.
type Bridge struct {
	component.Base

	router    *mux.Router
	server    *http.Server
	responses chan packet.Packet
}

// NewBridge constructs a Bridge listening on addr, routing every method
// and path through to the graph, with corsOrigins passed to rs/cors as
// the allowed origin list.
func NewBridge(addr string, corsOrigins []string) *Bridge {
	b := &Bridge{
		router:    mux.NewRouter(),
		responses: make(chan packet.Packet, 16),
	}
	b.Base = component.NewBase("Http Bridge")

	b.router.PathPrefix("/").HandlerFunc(b.handle)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
	})

	b.server = &http.Server{
		Addr:              addr,
		Handler:           corsMiddleware.Handler(b.router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return b
}

func (b *Bridge) handle(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, _ := io.ReadAll(r.Body)

	p := param.New()
	p.Set(ParamHTTPMethod, r.Method)
	p.Set(ParamHTTPPath, r.URL.RequestURI())

	headers := param.New()
	for k, v := range r.Header {
		if len(v) > 0 {
			headers.Set(k, v[0])
		}
	}
	p.Set(ParamHTTPHeaders, headers.Map())

	pkt := packet.New(p, buffer.New(body))
	if err := b.Pusher().Push(ChannelInboundRequest, pkt); err != nil {
		http.Error(w, "graph unavailable", http.StatusServiceUnavailable)
		return
	}

	select {
	case resp := <-b.responses:
		writeResponse(w, resp)
	case <-r.Context().Done():
	}
}

func writeResponse(w http.ResponseWriter, resp packet.Packet) {
	status := 200
	if v, ok := resp.Parameters.Get(ParamHTTPStatusCode); ok {
		if n, ok := v.(float64); ok {
			status = int(n)
		}
	}
	w.WriteHeader(status)
	if len(resp.Buffers) > 0 {
		_, _ = w.Write(resp.Buffers[0].Bytes())
	}
}

// SetSourcePusher implements component.Source: Bridge is a sink for
// graph responses but also pushes inbound HTTP requests out-of-band, so
// it declares the capability explicitly rather than relying on Base's
// storage alone (component.Base doc).
func (b *Bridge) SetSourcePusher(pusher packet.Pusher) {
	b.Base.SetPusher(pusher)
}

// HandlePacket accepts the graph's response packet for whichever
// in-flight HTTP request is waiting, implementing component.Sink.
func (b *Bridge) HandlePacket(ctx context.Context, channel packet.Channel, pkt packet.Packet) error {
	select {
	case b.responses <- pkt:
		return nil
	default:
		return errs.Wrap("http bridge: response channel full, dropping reply", errs.ErrMalformedPacket)
	}
}

// ListenAndServe starts the HTTP server; it blocks until ctx is
// canceled or the server fails, following the teacher's
// context-governed server lifecycle.
func (b *Bridge) ListenAndServe(ctx context.Context, logger log.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- b.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if logger != nil {
			logger.Info("shutting down http bridge")
		}
		return b.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
