package prefs

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// StyleSheet is a PresentationBinding that collects custom properties on
// top of a set of defaults and renders them as a :root rule.
type StyleSheet struct {
	mu    sync.RWMutex
	props map[string]string
	order []string
}

// NewStyleSheet returns a stylesheet seeded with default property values.
// Defaults are keyed by custom property name, e.g. "--fontsize".
func NewStyleSheet(defaults map[string]string) *StyleSheet {
	s := &StyleSheet{props: make(map[string]string, len(defaults))}
	names := make([]string, 0, len(defaults))
	for name := range defaults {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.set(name, defaults[name])
	}
	return s
}

// DefaultProperties maps preference defaults (by key) to their presented
// custom property values.
func DefaultProperties(defaults map[string]string) map[string]string {
	out := make(map[string]string, len(defaults))
	for key, value := range defaults {
		if name, css, ok := Property(key, value); ok && value != "" {
			out[name] = css
		}
	}
	return out
}

// SetProperty implements PresentationBinding.
func (s *StyleSheet) SetProperty(name, value string) {
	s.mu.Lock()
	s.set(name, value)
	s.mu.Unlock()
}

func (s *StyleSheet) set(name, value string) {
	if _, ok := s.props[name]; !ok {
		s.order = append(s.order, name)
	}
	s.props[name] = value
}

// Property returns the current value of a custom property.
func (s *StyleSheet) Property(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.props[name]
	return v, ok
}

// Properties returns a copy of all custom properties.
func (s *StyleSheet) Properties() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.props))
	for k, v := range s.props {
		out[k] = v
	}
	return out
}

// CSS renders the properties as a :root rule in insertion order.
func (s *StyleSheet) CSS() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var b strings.Builder
	b.WriteString(":root {\n")
	for _, name := range s.order {
		fmt.Fprintf(&b, "  %s: %s;\n", name, cssEscaper.Replace(s.props[name]))
	}
	b.WriteString("}\n")
	return b.String()
}

// cssEscaper keeps a value from closing the declaration or the rule.
var cssEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	"{", `\{`,
	"}", `\}`,
	"<", `\3c `,
	"\n", " ",
	"\r", " ",
)

// Form is the Controls implementation backing the preference form. Only
// the controls it was created with exist.
type Form struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewForm creates a form with the given controls and their initial values.
func NewForm(initial map[string]string) *Form {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &Form{values: values}
}

// SetValue implements Controls.
func (f *Form) SetValue(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; !ok {
		return fmt.Errorf("%w: %q", ErrMissingControl, key)
	}
	f.values[key] = value
	return nil
}

// Value returns the current value of a control.
func (f *Form) Value(key string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values[key]
}
