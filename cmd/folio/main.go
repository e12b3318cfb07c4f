package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"folio/internal/services"
)

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, formatError(err))
		}
		os.Exit(1)
	}
}

// formatError prefixes domain errors with their stable kind.
func formatError(err error) string {
	kind := services.Kind(err)
	if kind == "" || kind == "internal" {
		return err.Error()
	}
	return fmt.Sprintf("%s: %v", kind, err)
}
