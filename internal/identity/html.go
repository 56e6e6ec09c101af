package identity

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

//go:embed static/capture.html
var captureHTML []byte

//go:embed static/manage.html
var manageHTML []byte

// getStaticFS returns the embedded static assets rooted at static/
func getStaticFS() fs.FS {
	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return fsys
}
