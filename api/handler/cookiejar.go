package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ddevcap/fontprefs/prefs"
)

// requestJar is the cookie jar for a single request: reads come from the
// Cookie header, writes go out as Set-Cookie. Writes made during the request
// are overlaid on the incoming header so later reads in the same request see
// them.
type requestJar struct {
	c       *gin.Context
	pending []string // name=value, newest first
}

func newRequestJar(c *gin.Context) *requestJar {
	return &requestJar{c: c}
}

// Header implements prefs.CookieJar.
func (j *requestJar) Header() string {
	parts := make([]string, 0, len(j.pending)+1)
	parts = append(parts, j.pending...)
	for _, h := range j.c.Request.Header.Values("Cookie") {
		if h = strings.TrimSpace(h); h != "" {
			parts = append(parts, h)
		}
	}
	return strings.Join(parts, "; ")
}

// SetCookie implements prefs.CookieJar. A second write of the same cookie in
// one request replaces the first Set-Cookie header.
func (j *requestJar) SetCookie(r prefs.Record) {
	prefix := r.Name + "="
	header := j.c.Writer.Header()

	var kept []string
	for _, v := range header.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	header.Del("Set-Cookie")
	for _, v := range kept {
		header.Add("Set-Cookie", v)
	}
	header.Add("Set-Cookie", r.String())

	j.pending = append([]string{prefix + r.Value}, j.pending...)
}
