package prefs

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CookiePath is the path every preference cookie is scoped to.
const CookiePath = "/"

// Record is the structured form of a preference cookie as handed to a
// CookieJar. Name and Value are already percent-encoded.
type Record struct {
	Name    string
	Value   string
	Path    string
	Expires time.Time
}

// String serializes the record in Set-Cookie form:
// name=value; path=/; expires=<HTTP-date>.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	b.WriteByte('=')
	b.WriteString(r.Value)
	b.WriteString("; path=")
	b.WriteString(r.Path)
	b.WriteString("; expires=")
	b.WriteString(r.Expires.UTC().Format(http.TimeFormat))
	return b.String()
}

// NewRecord builds the cookie record for a preference that expires ttlDays
// after now.
func NewRecord(name, value string, ttlDays int, now time.Time) Record {
	return Record{
		Name:    EncodeComponent(name),
		Value:   EncodeComponent(value),
		Path:    CookiePath,
		Expires: now.Add(time.Duration(ttlDays) * 24 * time.Hour),
	}
}

// Encode returns the cookie text for name=value expiring ttlDays after now.
func Encode(name, value string, ttlDays int, now time.Time) string {
	return NewRecord(name, value, ttlDays, now).String()
}

// Decode scans a raw Cookie header for name and returns its decoded value.
// The first matching segment wins. found is false when no segment matches.
func Decode(header, name string) (value string, found bool) {
	if header == "" {
		return "", false
	}
	prefix := EncodeComponent(name) + "="
	for _, seg := range strings.Split(header, ";") {
		seg = strings.TrimSpace(seg)
		if raw, ok := strings.CutPrefix(seg, prefix); ok {
			return DecodeComponent(raw), true
		}
	}
	return "", false
}

// EncodeComponent percent-encodes s with the same character set as
// JavaScript's encodeURIComponent, so separators (';', '=', ',', spaces)
// can never leak into the cookie header.
func EncodeComponent(s string) string {
	// QueryEscape leaves A-Z a-z 0-9 - _ . ~ alone and writes spaces as '+'.
	// A literal '+' is already %2B at this point.
	escaped := strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
	return componentUnescaper.Replace(escaped)
}

// componentUnescaper restores the sub-delims encodeURIComponent keeps verbatim.
var componentUnescaper = strings.NewReplacer(
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// DecodeComponent reverses EncodeComponent. A malformed escape sequence
// yields s unchanged instead of an error.
func DecodeComponent(s string) string {
	v, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return v
}
