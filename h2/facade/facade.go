// Package facade bridges the engine's Stream header/data events to
// fasthttp's Request/Response, the external collaborator the core
// package deliberately knows nothing about. It is grounded on the
// teacher's adaptor.go/request.go/response.go: same pseudo-header
// switch, same "pull pseudo-headers off, fold the rest straight onto
// the fasthttp object" shape, adapted to this draft's pseudo-header
// set (:method, :scheme, :host, :path, :status — no :authority).
package facade

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
	"golang.org/x/net/http/httpguts"

	"github.com/vh2proto/engine/h2/hpack"
)

// ErrInvalidHeader reports a header field name or value that fails
// httpguts validation at the facade boundary.
type ErrInvalidHeader struct {
	Name, Value string
}

func (e *ErrInvalidHeader) Error() string {
	return fmt.Sprintf("facade: invalid header field %q: %q", e.Name, e.Value)
}

// FillRequest applies a decoded header block (already folded into
// repeated-name groups by the caller, mirroring how h2/connection_io.go's
// foldHeaders hands HEADERS events to callers) plus the accumulated body
// onto req, validating every field with httpguts as it goes.
func FillRequest(headers map[string][]string, body []byte, req *fasthttp.Request) error {
	req.Reset()

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
	if len(body) > 0 {
		req.SetBody(body)
	}
	return nil
}

func applyRequestField(name, value string, req *fasthttp.Request) error {
	if !strings.HasPrefix(name, ":") {
		switch name {
		case "user-agent":
			req.Header.SetUserAgent(value)
		case "content-type":
			req.Header.SetContentType(value)
		default:
			req.Header.Add(name, value)
		}
		return nil
	}

	switch name {
	case ":method":
		req.Header.SetMethod(value)
	case ":path":
		req.URI().SetPath(value)
	case ":scheme":
		req.URI().SetScheme(value)
	case ":host":
		req.URI().SetHost(value)
		req.Header.SetHost(value)
	default:
		return fmt.Errorf("facade: unknown pseudo-header %q", name)
	}
	return nil
}

// RequestFields turns req into the ordered HeaderField slice a
// Connection.SendHeaders call wants, emitting the four pseudo-headers
// first per §4.2's ordering note, then the rest lower-cased.
func RequestFields(req *fasthttp.Request) ([]hpack.HeaderField, error) {
	fields := []hpack.HeaderField{
		{Name: ":method", Value: string(req.Header.Method())},
		{Name: ":scheme", Value: string(req.URI().Scheme())},
		{Name: ":host", Value: string(req.URI().Host())},
		{Name: ":path", Value: string(req.URI().RequestURI())},
	}

	var err error
	req.Header.VisitAll(func(k, v []byte) {
		if err != nil {
			return
		}
		name := strings.ToLower(string(k))
		switch name {
		case "host":
			return
		}
		if verr := validate(name, string(v)); verr != nil {
			err = verr
			return
		}
		fields = append(fields, hpack.HeaderField{Name: name, Value: string(v)})
	})
	return fields, err
}

// ResponseFields turns res into the ordered HeaderField slice a
// Connection.SendHeaders call wants, mirroring the teacher's
// fasthttpResponseHeaders (status and content-length pulled out first,
// then the rest folded in lower-cased).
func ResponseFields(res *fasthttp.Response) ([]hpack.HeaderField, error) {
	fields := []hpack.HeaderField{
		{Name: ":status", Value: strconv.Itoa(res.Header.StatusCode())},
	}
	if n := len(res.Body()); n > 0 {
		fields = append(fields, hpack.HeaderField{Name: "content-length", Value: strconv.Itoa(n)})
	}

	var err error
	res.Header.VisitAll(func(k, v []byte) {
		if err != nil {
			return
		}
		name := strings.ToLower(string(k))
		if name == "content-length" {
			return
		}
		if verr := validate(name, string(v)); verr != nil {
			err = verr
			return
		}
		fields = append(fields, hpack.HeaderField{Name: name, Value: string(v)})
	})
	return fields, err
}

// FillResponse applies a decoded header block plus body onto res, the
// response-side counterpart of FillRequest.
func FillResponse(headers map[string][]string, body []byte, res *fasthttp.Response) error {
	res.Reset()

	for name, values := range headers {
		for _, v := range values {
			if err := validate(name, v); err != nil {
				return err
			}
			if name == ":status" {
				code, err := strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("facade: bad :status %q: %w", v, err)
				}
				res.SetStatusCode(code)
				continue
			}
			if strings.HasPrefix(name, ":") {
				return fmt.Errorf("facade: unknown pseudo-header %q", name)
			}
			res.Header.Add(name, v)
		}
	}
	if len(body) > 0 {
		res.SetBody(body)
	}
	return nil
}

// validate enforces httpguts' token/field-value rules on the decoded
// wire name and value, the same check shiroyk-ski-ext's http2 package
// runs before trusting a header off the wire.
func validate(name, value string) error {
	bare := strings.TrimPrefix(name, ":")
	if bare == "" {
		return &ErrInvalidHeader{Name: name, Value: value}
	}
	if !strings.HasPrefix(name, ":") && !httpguts.ValidHeaderFieldName(bare) {
		return &ErrInvalidHeader{Name: name, Value: value}
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return &ErrInvalidHeader{Name: name, Value: value}
	}
	return nil
}
