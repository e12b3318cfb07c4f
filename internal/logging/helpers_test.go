package logging_test

import (
	"io"
	"log/slog"
)

func slogToBuffer(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, nil))
}
