package facade

import (
	"net"
	"sync"

	"github.com/valyala/fasthttp"

	"github.com/vh2proto/engine/h2"
)

// ctxPool pools *fasthttp.RequestCtx across streams, the same pool the
// teacher's fasthttp2.ServerAdaptor keeps (server.go's ctxPool), just
// keyed off our Stream lifecycle instead of http2.Stream's.
var ctxPool = sync.Pool{
	New: func() interface{} { return &fasthttp.RequestCtx{} },
}

// Handler adapts a fasthttp.RequestHandler to the engine's per-stream
// events, the facade-side counterpart of the teacher's ServerAdaptor:
// OnNewStream acquires+resets a *fasthttp.RequestCtx, OnFrame folds
// HEADERS/DATA onto ctx.Request as they arrive, OnRequestFinished runs
// the handler and writes the response back, OnStreamEnd returns the ctx
// to the pool.
type Handler struct {
	H      fasthttp.RequestHandler
	Logger fasthttp.Logger
	Conn   net.Conn
}

// Attach wires h onto s, mirroring ServerAdaptor.OnNewStream +
// OnFrame + OnRequestFinished + OnStreamEnd as a single set of Stream
// callbacks (this engine delivers folded headers/data rather than raw
// frames, so there is no HPACK decode step here: Connection already
// did it).
func (h *Handler) Attach(c *h2.Connection, s *h2.Stream) {
	ctx := ctxPool.Get().(*fasthttp.RequestCtx)
	ctx.Request.Reset()
	ctx.Response.Reset()
	ctx.Init2(h.Conn, h.Logger, false)

	finish := func() {
		ctx.Request.Header.SetProtocol("HTTP/2.0")
		h.H(ctx)

		fields, err := ResponseFields(&ctx.Response)
		if err != nil {
			c.ResetStream(s, h2.ProtocolError)
			ctxPool.Put(ctx)
			return
		}
		hasBody := len(ctx.Response.Body()) != 0
		if err := c.SendHeaders(s, fields, 0, false, !hasBody); err != nil {
			ctxPool.Put(ctx)
			return
		}
		if hasBody {
			c.SendData(s, ctx.Response.Body(), true)
		}
		ctxPool.Put(ctx)
	}

	s.SetEvents(h2.StreamEvents{
		OnHeaders: func(hdrs map[string][]string, endStream bool) {
			if err := applyHeadersOnly(hdrs, &ctx.Request); err != nil {
				c.ResetStream(s, h2.ProtocolError)
				return
			}
			if endStream {
				finish()
			}
		},
		OnData: func(data []byte, endStream bool) {
			ctx.Request.AppendBody(data)
			if endStream {
				finish()
			}
		},
	})
}

// applyHeadersOnly is FillRequest without the Reset/body step, since
// headers and body arrive as separate events here instead of as the one
// fully-buffered header map plus body that FillRequest takes.
func applyHeadersOnly(headers map[string][]string, req *fasthttp.Request) error {
	for name, values := range headers {
		for _, v := range values {
			if err := validate(name, v); err != nil {
				return err
			}
			if err := applyRequestField(name, v, req); err != nil {
				return err
			}
		}
	}
	return nil
}
