package prefs

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTTLDays is the retention window used when a Store is created with a
// non-positive TTL.
const DefaultTTLDays = 30

// CookieJar is the storage boundary: a semicolon-delimited cookie header for
// reads and a structured set-cookie call for writes.
type CookieJar interface {
	Header() string
	SetCookie(r Record)
}

// PresentationBinding receives CSS custom property updates.
type PresentationBinding interface {
	SetProperty(name, value string)
}

// Controls mirrors stored values into input controls. SetValue returns
// ErrMissingControl when the control for key does not exist.
type Controls interface {
	SetValue(key, value string) error
}

// Store keeps a CookieJar and a PresentationBinding in sync.
type Store struct {
	mu       sync.Mutex
	jar      CookieJar
	binding  PresentationBinding
	controls Controls
	ttlDays  int
	now      func() time.Time
}

// NewStore creates a store over jar and binding. Controls are optional and
// may be attached later with BindControls.
func NewStore(jar CookieJar, binding PresentationBinding, ttlDays int) *Store {
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}
	return &Store{
		jar:     jar,
		binding: binding,
		ttlDays: ttlDays,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for cookie expiry.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// BindControls attaches the input controls. Call LoadAndApply afterwards to
// populate them.
func (s *Store) BindControls(c Controls) {
	s.mu.Lock()
	s.controls = c
	s.mu.Unlock()
}

// TTLDays returns the retention window for saves.
func (s *Store) TTLDays() int { return s.ttlDays }

// LoadAndApply reads every known preference and applies the ones that are
// stored. Missing preferences leave the binding at its defaults, and missing
// controls are skipped, so it is safe to call before the controls exist.
func (s *Store) LoadAndApply() {
	s.mu.Lock()
	defer s.mu.Unlock()

	header := s.jar.Header()
	for _, d := range Definitions {
		value, ok := stored(header, d)
		if !ok {
			slog.Debug("preference not stored", "key", d.Key)
			continue
		}
		s.applyLocked(d, value)
	}
}

// stored decodes d from header. An empty value counts as not stored.
func stored(header string, d Definition) (string, bool) {
	raw, ok := Decode(header, d.Key)
	if !ok {
		return "", false
	}
	value := d.Normalize(raw)
	return value, value != ""
}

// Get returns the stored value for key in its unit-less form.
func (s *Store) Get(key string) (string, error) {
	d, ok := Lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPreference, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := stored(s.jar.Header(), d)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingPreference, key)
	}
	return value, nil
}

// All returns every stored preference in definition order.
func (s *Store) All() []Preference {
	s.mu.Lock()
	defer s.mu.Unlock()
	header := s.jar.Header()
	out := make([]Preference, 0, len(Definitions))
	for _, d := range Definitions {
		if value, ok := stored(header, d); ok {
			out = append(out, Preference{Key: d.Key, Value: value})
		}
	}
	return out
}

// Save persists key=value for ttlDays and applies it to the binding and
// controls before returning. A non-positive ttlDays uses the store default.
func (s *Store) Save(key, value string, ttlDays int) error {
	d, ok := Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreference, key)
	}
	if ttlDays <= 0 {
		ttlDays = s.ttlDays
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	value = d.Normalize(value)
	s.jar.SetCookie(NewRecord(d.Key, value, ttlDays, s.now()))
	s.applyLocked(d, value)
	slog.Debug("preference saved", "key", d.Key, "value", value, "ttl_days", ttlDays)
	return nil
}

// OnLoad handles the page load event.
func (s *Store) OnLoad() {
	s.LoadAndApply()
}

// OnSubmit saves every known preference present in values.
func (s *Store) OnSubmit(values map[string]string) error {
	for _, d := range Definitions {
		v, ok := values[d.Key]
		if !ok {
			continue
		}
		if err := s.Save(d.Key, v, s.ttlDays); err != nil {
			return err
		}
	}
	return nil
}

// OnControlChange saves a single control's new value.
func (s *Store) OnControlChange(key, value string) error {
	return s.Save(key, value, s.ttlDays)
}

func (s *Store) applyLocked(d Definition, value string) {
	s.binding.SetProperty(d.Property, d.Present(value))
	if s.controls == nil {
		return
	}
	if err := s.controls.SetValue(d.Key, value); err != nil {
		if errors.Is(err, ErrMissingControl) {
			slog.Debug("control not present, skipping", "key", d.Key)
			return
		}
		slog.Warn("failed to update control", "key", d.Key, "error", err)
	}
}
