// Package prefs persists display preferences in cookies and applies them to
// a presentation binding as CSS custom properties.
//
// Two collaborators are injected: a CookieJar (the storage boundary) and a
// PresentationBinding (the style surface). Controls, the form inputs that
// mirror the stored values, can be attached later with Store.BindControls.
package prefs

import (
	"errors"
	"strings"
)

// Known preference keys.
const (
	KeyFontSize  = "fontsize"
	KeyFontColor = "fontcolor"
)

// sizeUnit is appended to the stored size at apply time. It is never stored.
const sizeUnit = "px"

var (
	// ErrMissingPreference is returned when no cookie holds the preference.
	ErrMissingPreference = errors.New("prefs: preference not set")
	// ErrMissingControl is returned by Controls when the bound input does not exist.
	ErrMissingControl = errors.New("prefs: control not present")
	// ErrUnknownPreference is returned when a key is not a known preference.
	ErrUnknownPreference = errors.New("prefs: unknown preference")
)

// Preference is a single stored key/value pair.
type Preference struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Definition describes how a preference is stored and presented.
type Definition struct {
	// Key is the cookie name and the form control name.
	Key string
	// Property is the CSS custom property the value is applied to.
	Property string
	// Unit is appended to the stored value when it is applied.
	Unit string
}

// Definitions lists the known preferences in apply order.
var Definitions = []Definition{
	{Key: KeyFontSize, Property: "--fontsize", Unit: sizeUnit},
	{Key: KeyFontColor, Property: "--fontcolor"},
}

// Lookup returns the definition for key.
func Lookup(key string) (Definition, bool) {
	for _, d := range Definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// Normalize returns the storage form of value for the preference. Values
// with a unit (e.g. "18px" for the size) are reduced to the bare number so
// the unit is only ever added once, at apply time.
func (d Definition) Normalize(value string) string {
	value = strings.TrimSpace(value)
	if d.Unit != "" {
		value = strings.TrimSpace(strings.TrimSuffix(value, d.Unit))
	}
	return value
}

// Present returns the CSS value for a stored value.
func (d Definition) Present(value string) string {
	return d.Normalize(value) + d.Unit
}

// Property returns the custom property name and CSS value that key=value
// renders to. ok is false for unknown keys.
func Property(key, value string) (name, css string, ok bool) {
	d, ok := Lookup(key)
	if !ok {
		return "", "", false
	}
	return d.Property, d.Present(value), true
}
