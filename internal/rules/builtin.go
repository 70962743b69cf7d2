package rules

import (
	"io"
	"net/url"
	"strings"

	"github.com/ResistanceIsUseless/StatusHawk/internal/requester"
	"github.com/ResistanceIsUseless/StatusHawk/internal/status"
)

// parkedPhrases are body fragments that identify a domain-parking
// landing page.
var parkedPhrases = []string{
	"this domain is parked",
	"this domain is for sale",
	"buy this domain",
	"domain parking",
	"parked domain",
	"purchase this domain",
	"interested in this domain",
}

// parkedCookie is the session cookie a common parking platform sets.
const parkedCookie = "parking_session"

// ParkedHandler downgrades subjects that resolve and answer HTTP but
// only serve a parking page. It only ever switches a verdict down.
type ParkedHandler struct {
	req *requester.Requester
}

// NewParkedHandler creates the parking-page detector.
func NewParkedHandler(req *requester.Requester) *ParkedHandler {
	return &ParkedHandler{req: req}
}

// Apply inspects the subject's landing page. The content check runs
// whatever the current verdict; only the cookie switch is reserved for
// subjects the pipeline found up.
func (h *ParkedHandler) Apply(st *status.Status) {
	resp, err := h.req.Get(requestURL(st))
	if err != nil {
		return
	}
	defer resp.Body.Close()

	if st.StatusBeforeExtraRules == status.Up {
		for _, cookie := range resp.Cookies() {
			if strings.Contains(strings.ToLower(cookie.Name), parkedCookie) {
				h.markParked(st)
				return
			}
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return
	}
	page := strings.ToLower(string(body))
	for _, phrase := range parkedPhrases {
		if strings.Contains(page, phrase) {
			h.markParked(st)
			return
		}
	}
}

func (h *ParkedHandler) markParked(st *status.Status) {
	st.Set(status.Down, status.SourceExtraRules)
	st.StatusAfterExtraRules = true
}

// subjectSwitchHops bounds how far the redirect chain is followed when
// looking for the switch to the bare variant.
const subjectSwitchHops = 5

// SubjectSwitchHandler detects servers that only exist on the bare
// form of a www. or m. subject. A redirect chain sending the prefixed
// subject to its bare variant at the same path means the prefixed
// name is not a site of its own; the verdict switches down.
type SubjectSwitchHandler struct {
	req *requester.Requester
}

// NewSubjectSwitchHandler creates the www/m switch detector.
func NewSubjectSwitchHandler(req *requester.Requester) *SubjectSwitchHandler {
	return &SubjectSwitchHandler{req: req}
}

// Apply walks the redirect chain of a www. or m. subject. A hop that
// redirects to the bare variant at the request's own path commits a
// down verdict.
func (h *SubjectSwitchHandler) Apply(st *status.Status) {
	bare := switchTarget(st.Netloc)
	if bare == "" {
		return
	}

	start := requestURL(st)
	startURL, err := url.Parse(start)
	if err != nil {
		return
	}
	startPath := startURL.Path

	target := start
	for hop := 0; hop < subjectSwitchHops; hop++ {
		resp, err := h.req.GetNoRedirect(target)
		if err != nil {
			return
		}
		location := resp.Header.Get("Location")
		code := resp.StatusCode
		resp.Body.Close()

		if code < 300 || code >= 400 || location == "" {
			return
		}

		next, err := resp.Request.URL.Parse(location)
		if err != nil {
			return
		}
		if strings.EqualFold(next.Host, bare) && samePath(startPath, next.Path) {
			h.markSwitched(st)
			return
		}
		target = next.String()
	}
}

func (h *SubjectSwitchHandler) markSwitched(st *status.Status) {
	st.Set(status.Down, status.SourceExtraRules)
	st.StatusAfterExtraRules = true
}

// switchTarget returns the bare form of a www. or m. netloc, or an
// empty string when the netloc carries no such prefix.
func switchTarget(netloc string) string {
	if rest := strings.TrimPrefix(netloc, "www."); rest != netloc {
		return rest
	}
	if rest := strings.TrimPrefix(netloc, "m."); rest != netloc {
		return rest
	}
	return ""
}

// samePath compares the redirect's path against the request's. A
// request without a path only matches a redirect to the root.
func samePath(startPath, redirectPath string) bool {
	if startPath == "" {
		return redirectPath == "/"
	}
	return startPath == redirectPath
}

var _ Handler = (*ParkedHandler)(nil)
var _ Handler = (*SubjectSwitchHandler)(nil)
