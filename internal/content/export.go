package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Export is an asynchronous rendering job. Once complete or failed it never
// changes again.
type Export struct {
	ID            string         `json:"id"`
	BookID        string         `json:"book_id"`
	Format        ExportFormat   `json:"format"`
	Status        ExportStatus   `json:"status"`
	FileURL       string         `json:"file_url,omitempty"`
	Settings      ExportSettings `json:"settings"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	RenderedAt    *time.Time     `json:"rendered_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	LastHeartbeat *time.Time     `json:"last_heartbeat,omitempty"`
}

// ExportSettings is the snapshot of render options taken at request time.
type ExportSettings struct {
	IncludeCover bool     `json:"include_cover"`
	IncludeTOC   bool     `json:"include_toc"`
	PageSize     PageSize `json:"page_size,omitempty"`
	FontSize     int      `json:"font_size,omitempty"`
	VoiceID      string   `json:"voice_id,omitempty"`
}

const (
	minFontSize = 6
	maxFontSize = 72
)

// DefaultExportSettings returns the settings used when a request supplies none.
func DefaultExportSettings(book BookSettings) ExportSettings {
	return ExportSettings{
		IncludeCover: true,
		IncludeTOC:   book.IncludeTOC,
		PageSize:     Page6x9,
		FontSize:     11,
	}
}

// Validate rejects unknown page sizes and implausible font sizes.
func (s ExportSettings) Validate() error {
	var problems []string
	if s.PageSize != "" {
		if _, ok := ParsePageSize(string(s.PageSize)); !ok {
			problems = append(problems, fmt.Sprintf("unknown page_size %q", s.PageSize))
		}
	}
	if s.FontSize != 0 && (s.FontSize < minFontSize || s.FontSize > maxFontSize) {
		problems = append(problems, fmt.Sprintf("font_size must be between %d and %d", minFontSize, maxFontSize))
	}
	return validationError("validate export settings", problems)
}

// NewExport builds a queued export job.
func NewExport(bookID string, format ExportFormat, settings ExportSettings, now time.Time) (Export, error) {
	e := Export{
		ID:        uuid.NewString(),
		BookID:    strings.TrimSpace(bookID),
		Format:    format,
		Status:    ExportQueued,
		Settings:  settings,
		CreatedAt: now,
	}
	var problems []string
	if e.BookID == "" {
		problems = append(problems, "book_id is required")
	}
	if _, ok := ParseExportFormat(string(format)); !ok {
		problems = append(problems, fmt.Sprintf("unknown format %q", format))
	}
	if err := validationError("validate export", problems); err != nil {
		return Export{}, err
	}
	if err := settings.Validate(); err != nil {
		return Export{}, err
	}
	return e, nil
}
