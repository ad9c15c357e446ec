package app

import (
	"log/slog"
	"mime"
)

// The stylesheet is served from the embedded filesystem; make sure minimal
// environments still map .css correctly.
func init() {
	if mime.TypeByExtension(".css") != "" {
		return
	}
	if err := mime.AddExtensionType(".css", "text/css; charset=utf-8"); err != nil {
		slog.Default().Warn("register css mime type", slog.Any("error", err))
	}
}
