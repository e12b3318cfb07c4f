package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"folio/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level              string
	Format             string
	OutputPaths        []string
	ComponentOverrides map[string]string
	Development        bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	overrides := make(map[string]slog.Level, len(opts.ComponentOverrides))
	floor := level
	for component, value := range opts.ComponentOverrides {
		lvl := parseLevel(value)
		overrides[strings.ToLower(strings.TrimSpace(component))] = lvl
		if lvl < floor {
			floor = lvl
		}
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(floor)

	paths := opts.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stderr"}
	}
	writer, isTerminal, err := openWriters(paths)
	if err != nil {
		return nil, err
	}

	addSource := opts.Development || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" || format == "auto" {
		format = "json"
		if isTerminal {
			format = "console"
		}
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = newJSONHandler(writer, levelVar, addSource)
	case "console", "text":
		handler = newConsoleHandler(writer, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	return slog.New(newComponentLevelHandler(handler, level, overrides)), nil
}

// NewFromConfig creates a logger writing to stderr and the folio log file.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "auto"})
	}

	outputPaths := []string{"stderr"}
	if cfg.Paths.LogDir != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		outputPaths = append(outputPaths, cfg.LogPath())
	}

	return New(Options{
		Level:              cfg.Logging.Level,
		Format:             cfg.Logging.Format,
		OutputPaths:        outputPaths,
		ComponentOverrides: cfg.Logging.ComponentOverrides,
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openWriters returns a combined writer and whether the first stream is a terminal.
func openWriters(paths []string) (io.Writer, bool, error) {
	seen := map[string]struct{}{}
	var writers []io.Writer
	terminal := false

	for i, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout", "stderr":
			stream := os.Stderr
			if trimmed == "stdout" {
				stream = os.Stdout
			}
			if i == 0 {
				terminal = isatty.IsTerminal(stream.Fd()) || isatty.IsCygwinTerminal(stream.Fd())
			}
			writers = append(writers, stream)
		default:
			if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, false, fmt.Errorf("create log dir %s: %w", dir, err)
				}
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, false, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stderr, false, nil
	case 1:
		return writers[0], terminal, nil
	default:
		return io.MultiWriter(writers...), terminal, nil
	}
}
