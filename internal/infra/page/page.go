// Package page defines the bridge between the guard and the browser surface
// it supervises. Hosts implement Location and Document over whatever IPC
// their webview exposes; the Memory implementation backs tests and headless
// simulation.
package page

import "net/url"

// Location is the address bar of the supervised page.
type Location interface {
	// Current returns the page's current address.
	Current() (*url.URL, error)

	// Replace rewrites the address in place without navigating.
	Replace(u *url.URL) error

	// Assign navigates the page to u, destroying the page's in-memory state.
	Assign(u *url.URL) error

	// Reload performs an unconditional refresh of the current address.
	Reload() error
}

// Document is the subset of the page DOM the fallback renderer touches.
type Document interface {
	// Exists reports whether the selector matches at least one element.
	Exists(selector string) bool

	// SetHTML replaces the inner HTML of the first matching element.
	SetHTML(selector, html string) error

	// SetText replaces the text content of every matching element.
	SetText(selector, text string) error
}

// Page is a full bridge to one supervised browser surface.
type Page interface {
	Location
	Document
}
