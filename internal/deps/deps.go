// Package deps checks the external binaries folio shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"folio/internal/config"
)

// Requirement defines an external binary a configured feature relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// SplitCommand separates a configured command line into the binary and its
// leading arguments.
func SplitCommand(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// Requirements lists the binaries needed by the features enabled in cfg.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	var reqs []Requirement
	if bin, _ := SplitCommand(cfg.Export.PDFCommand); bin != "" {
		reqs = append(reqs, Requirement{
			Name:        "PDF converter",
			Command:     bin,
			Description: "Renders pdf and pdf_print exports",
			Optional:    true,
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Path = path
		status.Available = true
		results = append(results, status)
	}
	return results
}
