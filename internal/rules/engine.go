package rules

import (
	"io"
	"net/http"
	"regexp"

	"github.com/ResistanceIsUseless/StatusHawk/internal/logging"
	"github.com/ResistanceIsUseless/StatusHawk/internal/requester"
	"github.com/ResistanceIsUseless/StatusHawk/internal/status"
)

// maxBodyBytes caps how much of a response body a rule inspects.
const maxBodyBytes = 1 << 20

// Engine evaluates an ordered override rule list against a resolved
// status. The first rule that fires commits a terminal verdict; later
// rules and builtin handlers are skipped.
type Engine struct {
	rules    []*Rule
	builtins []Handler
	req      *requester.Requester
	logger   *logging.Logger
}

// Handler is a built-in override evaluated after the user rule list.
type Handler interface {
	Apply(st *status.Status)
}

// NewEngine creates a rule engine sharing the given requester for the
// live header and body checks.
func NewEngine(rules []*Rule, req *requester.Requester, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Engine{rules: rules, req: req, logger: logger}
}

// AddBuiltin appends a built-in handler. Builtins run after the user
// rule list and only when no rule committed a verdict.
func (e *Engine) AddBuiltin(handler Handler) {
	e.builtins = append(e.builtins, handler)
}

// Apply runs the rule list against the status in order. Rules read the
// verdict the pipeline committed and may transition it up or down; the
// first firing rule is terminal.
func (e *Engine) Apply(st *status.Status) {
	if st.StatusAfterExtraRules {
		return
	}
	st.StatusBeforeExtraRules = st.Status

	for _, rule := range e.rules {
		if st.StatusAfterExtraRules {
			break
		}
		if !rule.Matches(st.Netloc) {
			continue
		}
		e.applyRule(rule, st)
	}

	for _, handler := range e.builtins {
		if st.StatusAfterExtraRules {
			break
		}
		handler.Apply(st)
	}
}

func (e *Engine) applyRule(rule *Rule, st *status.Status) {
	switch rule.Kind {
	case KindStatusCode:
		if matchStatusCode(rule.StatusCodes, st.HTTPStatusCode) {
			commit(st, rule.Transition)
		}

	case KindHeaders:
		headers, _ := e.fetch(st)
		if headers != nil && matchHeaders(rule.HeaderPatterns, headers) {
			commit(st, rule.Transition)
		}

	case KindBody:
		_, body := e.fetch(st)
		if matchBody(rule.BodyPatterns, body) {
			commit(st, rule.Transition)
		}

	case KindHeadersBody:
		headers, body := e.fetch(st)
		if headers != nil && matchHeaders(rule.HeaderPatterns, headers) {
			commit(st, rule.Transition)
		} else if matchBody(rule.BodyPatterns, body) {
			commit(st, rule.Transition)
		}

	case KindAll:
		if len(rule.StatusCodes) > 0 && matchStatusCode(rule.StatusCodes, st.HTTPStatusCode) {
			commit(st, rule.Transition)
			return
		}
		if len(rule.HeaderPatterns) == 0 && len(rule.BodyPatterns) == 0 {
			return
		}
		headers, body := e.fetch(st)
		if len(rule.HeaderPatterns) > 0 && headers != nil && matchHeaders(rule.HeaderPatterns, headers) {
			commit(st, rule.Transition)
			return
		}
		if len(rule.BodyPatterns) > 0 && matchBody(rule.BodyPatterns, body) {
			commit(st, rule.Transition)
		}
	}
}

// fetch performs the live request backing header and body checks.
// Redirects are disabled so the rule inspects the first response the
// subject itself produced. Failures leave both results empty; a rule
// that cannot observe simply does not fire.
func (e *Engine) fetch(st *status.Status) (http.Header, string) {
	resp, err := e.req.GetNoRedirect(requestURL(st))
	if err != nil {
		return nil, ""
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.Header, ""
	}
	return resp.Header, string(body)
}

// requestURL rebuilds the URL a live check should hit. URL subjects are
// requested as given; bare domains and IPs over plain HTTP.
func requestURL(st *status.Status) string {
	if st.URLSyntax {
		return st.IDNASubject
	}
	return "http://" + st.Netloc
}

func commit(st *status.Status, transition Transition) {
	if transition == TransitionUp {
		st.Set(status.Up, status.SourceExtraRules)
	} else {
		st.Set(status.Down, status.SourceExtraRules)
	}
	st.StatusAfterExtraRules = true
}

func matchStatusCode(required []int, observed int) bool {
	for _, code := range required {
		if code == observed {
			return true
		}
	}
	return false
}

// matchHeaders fires when any configured header is present and at
// least one of its values matches at least one pattern.
func matchHeaders(patterns map[string][]*regexp.Regexp, headers http.Header) bool {
	for header, compiled := range patterns {
		values := headers.Values(header)
		if len(values) == 0 {
			continue
		}
		for _, value := range values {
			for _, pattern := range compiled {
				if pattern.MatchString(value) {
					return true
				}
			}
		}
	}
	return false
}

// matchBody fires when any pattern matches anywhere in the body.
func matchBody(patterns []*regexp.Regexp, body string) bool {
	if body == "" {
		return false
	}
	for _, pattern := range patterns {
		if pattern.MatchString(body) {
			return true
		}
	}
	return false
}
