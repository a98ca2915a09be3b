// Package web provides the embedded dashboard page.
package web

import (
	"embed"
)

//go:embed dist/index.html
var pageFS embed.FS

// IndexHTML returns the dashboard page. The page talks to the JSON API only.
func IndexHTML() []byte {
	data, err := pageFS.ReadFile("dist/index.html")
	if err != nil {
		panic(err)
	}
	return data
}
