package prefs

import (
	"sort"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryJar is an in-memory CookieJar. Cookies disappear once their expiry
// passes; a record whose expiry is already in the past deletes the cookie.
type MemoryJar struct {
	cookies *ttlcache.Cache[string, string]
	now     func() time.Time
}

// NewMemoryJar returns an empty jar.
func NewMemoryJar() *MemoryJar {
	return &MemoryJar{
		cookies: ttlcache.New[string, string](
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
		now: time.Now,
	}
}

// NewMemoryJarFromHeader seeds a jar from a raw Cookie header. Seeded
// cookies have no expiry, like browser session cookies. When a name repeats,
// the first occurrence is kept.
func NewMemoryJarFromHeader(header string) *MemoryJar {
	j := NewMemoryJar()
	for _, seg := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(seg), "=")
		if !ok || name == "" || j.cookies.Has(name) {
			continue
		}
		j.cookies.Set(name, value, ttlcache.NoTTL)
	}
	return j
}

// Header returns the live cookies as name=value pairs joined by "; ",
// ordered by name.
func (j *MemoryJar) Header() string {
	keys := j.cookies.Keys()
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		item := j.cookies.Get(k)
		if item == nil {
			continue
		}
		pairs = append(pairs, k+"="+item.Value())
	}
	return strings.Join(pairs, "; ")
}

// SetCookie stores or replaces the record's cookie.
func (j *MemoryJar) SetCookie(r Record) {
	if r.Expires.IsZero() {
		j.cookies.Set(r.Name, r.Value, ttlcache.NoTTL)
		return
	}
	ttl := r.Expires.Sub(j.now())
	if ttl <= 0 {
		j.cookies.Delete(r.Name)
		return
	}
	j.cookies.Set(r.Name, r.Value, ttl)
}

// Len reports the number of live cookies.
func (j *MemoryJar) Len() int {
	n := 0
	for _, k := range j.cookies.Keys() {
		if j.cookies.Get(k) != nil {
			n++
		}
	}
	return n
}
