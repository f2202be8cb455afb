package facade

import (
	"github.com/valyala/fasthttp"

	"github.com/vh2proto/engine/h2"
)

// Do sends req as a HEADERS(+DATA) series on s and fills res from the
// reply, blocking until the reply's END_STREAM arrives on a HEADERS or
// DATA event, or the stream is reset. Grounded on the same pseudo-header
// mapping as the server side; this is the client-role mirror the
// teacher never needed (dgrr/http2 is server-only) but docker-compose's
// and shiroyk-ski-ext's http2 clients both show the same
// request-out/response-in shape.
func Do(c *h2.Connection, s *h2.Stream, req *fasthttp.Request, res *fasthttp.Response) error {
	fields, err := RequestFields(req)
	if err != nil {
		return err
	}

	body := req.Body()
	done := make(chan error, 1)
	var headers map[string][]string
	var respBody []byte

	s.SetEvents(h2.StreamEvents{
		OnHeaders: func(hdrs map[string][]string, endStream bool) {
			headers = hdrs
			if endStream {
				done <- FillResponse(headers, respBody, res)
			}
		},
		OnData: func(data []byte, endStream bool) {
			respBody = append(respBody, data...)
			if endStream {
				done <- FillResponse(headers, respBody, res)
			}
		},
		OnError: func(code h2.ErrorCode) {
			done <- &ErrInvalidHeader{Name: ":status", Value: code.String()}
		},
	})

	if err := c.SendHeaders(s, fields, 0, false, len(body) == 0); err != nil {
		return err
	}
	if len(body) > 0 {
		if err := c.SendData(s, body, true); err != nil {
			return err
		}
	}

	return <-done
}
