// Package dispatch implements the request dispatch layer: an immutable
// table of endpoint rules, each wrapped with header-token auth, query
// parameter coercion and uniform JSON response and error shaping.
package dispatch

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/flaskbasic/basicapp/internal/metrics"
	"github.com/flaskbasic/basicapp/internal/middleware"
)

// DefaultAuthHeader is the header carrying the auth token.
const DefaultAuthHeader = "Authorization"

// Options configures an Endpoint.
type Options struct {
	// Prefix is prepended to every rule path, e.g. "/api/v1".
	Prefix string
	// AuthToken, when set, must equal the value of AuthHeader on every call.
	AuthToken  string
	AuthHeader string

	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// ErrorResponse is the body written for a failed call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Handler string `json:"handler"`
}

// Endpoint dispatches requests to a fixed set of rules.
type Endpoint struct {
	opts   Options
	rules  []Rule
	byName map[string]int
}

// New builds an Endpoint from rules. The rule table cannot change afterwards.
func New(opts Options, rules []Rule) (*Endpoint, error) {
	if opts.AuthHeader == "" {
		opts.AuthHeader = DefaultAuthHeader
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NewNoop()
	}
	opts.Prefix = strings.TrimSuffix(opts.Prefix, "/")

	e := &Endpoint{
		opts:   opts,
		rules:  make([]Rule, len(rules)),
		byName: make(map[string]int, len(rules)),
	}

	for i, rule := range rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("rule %d: name is required", i)
		}
		if _, dup := e.byName[rule.Name]; dup {
			return nil, fmt.Errorf("rule %s: duplicate name", rule.Name)
		}
		if rule.Handler == nil {
			return nil, fmt.Errorf("rule %s: handler is required", rule.Name)
		}
		if len(rule.Paths) == 0 {
			return nil, fmt.Errorf("rule %s: at least one path is required", rule.Name)
		}

		rule.Paths = append([]string(nil), rule.Paths...)
		if len(rule.Methods) == 0 {
			rule.Methods = []string{http.MethodGet}
		} else {
			methods := make([]string, len(rule.Methods))
			for j, m := range rule.Methods {
				methods[j] = strings.ToUpper(m)
			}
			rule.Methods = methods
		}
		params := make(map[string]ParamType, len(rule.Params))
		for k, v := range rule.Params {
			params[k] = v
		}
		rule.Params = params

		e.rules[i] = rule
		e.byName[rule.Name] = i
	}

	return e, nil
}

// Rule returns the registered rule with the given name.
func (e *Endpoint) Rule(name string) (Rule, bool) {
	i, ok := e.byName[name]
	if !ok {
		return Rule{}, false
	}
	return e.rules[i], true
}

// Rules returns the rule table in registration order.
func (e *Endpoint) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Mount registers every rule on r under the configured prefix.
func (e *Endpoint) Mount(r chi.Router) {
	for i := range e.rules {
		rule := &e.rules[i]
		h := e.Handler(rule)
		for _, path := range rule.Paths {
			for _, method := range rule.Methods {
				r.Method(method, e.opts.Prefix+path, h)
			}
		}
	}
}

// Handler wraps rule in the dispatch policy. No error or panic escapes
// the returned handler; both are written as an ErrorResponse.
func (e *Endpoint) Handler(rule *Rule) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		resp, err := e.invoke(rule, r)
		var body []byte
		if err == nil {
			body, err = encode(resp.Body)
		}
		if err != nil {
			resp = e.errorResponse(rule, r, err)
			body, _ = encode(resp.Body)
		}

		status := resp.Status
		if status == 0 {
			status = http.StatusOK
		}

		for k, values := range resp.Header {
			for _, v := range values {
				w.Header().Add(k, v)
			}
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = w.Write(body)

		e.opts.Recorder.IncDispatch(rule.Name, status)
		e.opts.Recorder.ObserveDispatchDuration(rule.Name, time.Since(start))
	})
}

// invoke runs the auth check, parameter coercion, validators and the
// handler, converting a panic into a PanicError.
func (e *Endpoint) invoke(rule *Rule, r *http.Request) (resp *Response, err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			e.opts.Logger.Error("handler panic recovered",
				slog.String("handler", rule.Name),
				slog.String("request_id", middleware.GetRequestID(r.Context())),
				slog.Any("panic", rvr),
				slog.String("stack", string(debug.Stack())),
			)
			resp, err = nil, &PanicError{Value: rvr}
		}
	}()

	if err := e.checkAuth(r); err != nil {
		return nil, err
	}

	params, err := rule.coerce(r.URL.Query())
	if err != nil {
		return nil, err
	}

	call := &Call{Request: r, Params: params, Rule: rule}
	if rule.Validate != nil {
		if err := rule.Validate(call); err != nil {
			return nil, asValidationError(err)
		}
	}

	out, err := rule.Handler(call)
	if err != nil {
		return nil, err
	}

	if rule.ValidateResponse != nil {
		if err := rule.ValidateResponse(out); err != nil {
			return nil, asValidationError(err)
		}
	}

	if explicit, ok := out.(*Response); ok && explicit != nil {
		return explicit, nil
	}
	return &Response{Status: http.StatusOK, Body: out}, nil
}

// checkAuth is a no-op unless an auth token is configured.
func (e *Endpoint) checkAuth(r *http.Request) error {
	if e.opts.AuthToken == "" {
		return nil
	}

	values := r.Header.Values(e.opts.AuthHeader)
	if len(values) == 0 || values[0] == "" {
		return &AuthError{Header: e.opts.AuthHeader, Err: ErrAuthTokenMissing}
	}
	if subtle.ConstantTimeCompare([]byte(values[0]), []byte(e.opts.AuthToken)) != 1 {
		return &AuthError{Header: e.opts.AuthHeader, Err: ErrAuthTokenInvalid}
	}
	return nil
}

func (e *Endpoint) errorResponse(rule *Rule, r *http.Request, err error) *Response {
	status := StatusOf(err)

	level := slog.LevelWarn
	if status >= 500 {
		level = slog.LevelError
	}
	e.opts.Logger.LogAttrs(r.Context(), level, "dispatch error",
		slog.String("handler", rule.Name),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)

	return &Response{
		Status: status,
		Body: ErrorResponse{
			Error:   fmt.Sprintf("Exception in %s. XCP: %s", rule.Name, err),
			Code:    codeOf(err),
			Handler: rule.Name,
		},
	}
}

func asValidationError(err error) error {
	if errors.Is(err, ErrValidation) {
		return err
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return err
	}
	return &ValidationError{Message: err.Error()}
}

// encode renders a response body without HTML escaping. Raw bytes are
// written unchanged.
func encode(body any) ([]byte, error) {
	switch b := body.(type) {
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	}
	data, err := json.MarshalNoEscape(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return data, nil
}

var pathVar = regexp.MustCompile(`\{([^}:]+)(:[^}]*)?\}`)

// NewTestRequest builds a request for the named rule using its first path
// and method. Path variables are filled from vars; authToken, when set, is
// sent in the auth header.
func (e *Endpoint) NewTestRequest(name string, vars map[string]string, authToken string, query url.Values, body io.Reader) (*http.Request, error) {
	rule, ok := e.Rule(name)
	if !ok {
		return nil, fmt.Errorf("no rule named %s", name)
	}

	var missing []string
	path := pathVar.ReplaceAllStringFunc(rule.Paths[0], func(m string) string {
		key := pathVar.FindStringSubmatch(m)[1]
		v, ok := vars[key]
		if !ok {
			missing = append(missing, key)
			return m
		}
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("rule %s: missing path variables %s", name, strings.Join(missing, ", "))
	}

	target := e.opts.Prefix + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequest(rule.Methods[0], target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set(e.opts.AuthHeader, authToken)
	}

	return req, nil
}
