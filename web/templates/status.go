// Package templates renders the HTML status page served at the root path.
package templates

import "github.com/sydlexius/svgscout/internal/scanner"

// Endpoint is one API route listed on the status page.
type Endpoint struct {
	Method      string
	Path        string
	Description string
}

// StatusData feeds StatusPage.
type StatusData struct {
	Version   string
	Jobs      []scanner.Job
	Endpoints []Endpoint
}
