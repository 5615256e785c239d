// Package static embeds the page template and client script served by the
// preferences UI.
package static

import _ "embed"

// IndexHTML is the html/template source for the preferences page.
//
//go:embed index.html
var IndexHTML string

// AppJS wires the form controls to the JSON API and the live preview socket.
//
//go:embed app.js
var AppJS string
