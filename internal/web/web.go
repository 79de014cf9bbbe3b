// Package web embeds the browser frontend.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// Assets returns the frontend files rooted at the directory that holds
// index.html.
func Assets() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// fs.Sub only fails on an invalid path, which "static" is not.
		panic(err)
	}
	return sub
}
