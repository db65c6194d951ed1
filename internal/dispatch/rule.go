package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
)

// ParamType is the declared scalar type of a query parameter.
type ParamType int

const (
	ParamString ParamType = iota
	ParamBool
	ParamInt
	ParamFloat
)

func (t ParamType) String() string {
	switch t {
	case ParamBool:
		return "bool"
	case ParamInt:
		return "int"
	case ParamFloat:
		return "float"
	default:
		return "string"
	}
}

// cast converts raw to t. Booleans are lexical: only "true", in any case,
// is true. Empty values of other types are kept as the raw string.
func (t ParamType) cast(raw string) (any, error) {
	if t == ParamBool {
		return strings.ToLower(raw) == "true", nil
	}
	if raw == "" {
		return raw, nil
	}

	switch t {
	case ParamInt:
		return strconv.ParseInt(raw, 10, 64)
	case ParamFloat:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}

// HandlerFunc serves one dispatched call. The returned value is written
// as JSON with status 200 unless it is a *Response.
type HandlerFunc func(*Call) (any, error)

// Rule registers one endpoint.
type Rule struct {
	// Name identifies the handler in error responses and metrics.
	Name string
	// Paths are chi patterns relative to the endpoint prefix.
	Paths []string
	// Methods default to GET.
	Methods []string
	// Params declares the types of known query parameters.
	Params map[string]ParamType

	// Validate runs after parameter coercion and before the handler.
	Validate func(*Call) error
	// ValidateResponse checks the handler's return value.
	ValidateResponse func(any) error

	Handler HandlerFunc
}

// coerce casts every query parameter that has a declared type. Unknown
// parameters pass through as raw strings. Only the first value of a
// repeated parameter is used.
func (r *Rule) coerce(query url.Values) (Params, error) {
	params := make(Params, len(query))
	for name, values := range query {
		if len(values) == 0 {
			continue
		}
		raw := values[0]

		typ, ok := r.Params[name]
		if !ok {
			params[name] = raw
			continue
		}

		v, err := typ.cast(raw)
		if err != nil {
			return nil, &ParamError{Name: name, Type: typ, Value: raw, Err: err}
		}
		params[name] = v
	}
	return params, nil
}

// Params holds the coerced query parameters of a call.
type Params map[string]any

// Get returns the values of names in order, nil for absent names.
func (p Params) Get(names ...string) []any {
	out := make([]any, len(names))
	for i, name := range names {
		out[i] = p[name]
	}
	return out
}

// String returns a string parameter, or "" when absent.
func (p Params) String(name string) string {
	s, _ := p[name].(string)
	return s
}

// Bool returns a bool parameter, or false when absent.
func (p Params) Bool(name string) bool {
	b, _ := p[name].(bool)
	return b
}

// Int returns an int parameter. ok is false when the parameter is absent
// or was not cast to an integer.
func (p Params) Int(name string) (n int64, ok bool) {
	n, ok = p[name].(int64)
	return n, ok
}

// Call is the per-request input of a HandlerFunc.
type Call struct {
	Request *http.Request
	Params  Params
	Rule    *Rule
}

// Context returns the request context.
func (c *Call) Context() context.Context {
	return c.Request.Context()
}

// URLParam returns a path variable.
func (c *Call) URLParam(name string) string {
	return chi.URLParam(c.Request, name)
}

// PathID parses a numeric path variable. A malformed value is reported as
// a 404, since no entity can be addressed by it.
func (c *Call) PathID(name string) (int64, error) {
	raw := c.URLParam(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewHTTPError(http.StatusNotFound, "invalid %s %q", name, raw)
	}
	return id, nil
}

// Decode reads the JSON request body into dst.
func (c *Call) Decode(dst any) error {
	if c.Request.Body == nil {
		return &ValidationError{Message: "request body is required"}
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return NewHTTPError(http.StatusRequestEntityTooLarge, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) == 0 {
		return &ValidationError{Message: "request body is required"}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &ValidationError{Message: "invalid JSON body: " + err.Error()}
	}
	return nil
}

// Response is an explicit handler result. It is written as-is, bypassing
// the default 200 wrapping.
type Response struct {
	Status int
	Header http.Header
	Body   any
}

// JSON returns a Response with the given status.
func JSON(status int, body any) *Response {
	return &Response{Status: status, Body: body}
}
