package content

import "strings"

// BookStatus is the lifecycle position of a book.
type BookStatus string

const (
	BookInterview BookStatus = "interview"
	BookOutline   BookStatus = "outline"
	BookWriting   BookStatus = "writing"
	BookEditing   BookStatus = "editing"
	BookReview    BookStatus = "review"
	BookPublished BookStatus = "published"
)

var bookStatuses = []BookStatus{BookInterview, BookOutline, BookWriting, BookEditing, BookReview, BookPublished}

// Rank orders book statuses along the forward-only lifecycle.
func (s BookStatus) Rank() int {
	switch s {
	case BookInterview:
		return 0
	case BookOutline:
		return 1
	case BookWriting:
		return 2
	case BookEditing:
		return 3
	case BookReview:
		return 4
	case BookPublished:
		return 5
	default:
		return -1
	}
}

// AtLeast reports whether s is at or beyond other in the lifecycle.
func (s BookStatus) AtLeast(other BookStatus) bool {
	return s.Rank() >= other.Rank()
}

// ParseBookStatus converts a string into a known BookStatus.
func ParseBookStatus(value string) (BookStatus, bool) {
	return parseEnum(value, bookStatuses)
}

// BookType classifies a book.
type BookType string

const (
	BookTypeFiction    BookType = "fiction"
	BookTypeNonfiction BookType = "nonfiction"
	BookTypeGuide      BookType = "guide"
	BookTypeMemoir     BookType = "memoir"
	BookTypeAcademic   BookType = "academic"
	BookTypeChildren   BookType = "children"
	BookTypeOther      BookType = "other"
)

var bookTypes = []BookType{
	BookTypeFiction, BookTypeNonfiction, BookTypeGuide, BookTypeMemoir,
	BookTypeAcademic, BookTypeChildren, BookTypeOther,
}

// ParseBookType converts a string into a known BookType.
func ParseBookType(value string) (BookType, bool) {
	return parseEnum(value, bookTypes)
}

// Tone is the voice profile tone.
type Tone string

const (
	ToneFormal         Tone = "formal"
	ToneCasual         Tone = "casual"
	ToneAcademic       Tone = "academic"
	ToneConversational Tone = "conversational"
	ToneInspirational  Tone = "inspirational"
)

var tones = []Tone{ToneFormal, ToneCasual, ToneAcademic, ToneConversational, ToneInspirational}

// ParseTone converts a string into a known Tone.
func ParseTone(value string) (Tone, bool) {
	return parseEnum(value, tones)
}

// VocabularyLevel is the voice profile vocabulary level.
type VocabularyLevel string

const (
	VocabularySimple    VocabularyLevel = "simple"
	VocabularyModerate  VocabularyLevel = "moderate"
	VocabularyAdvanced  VocabularyLevel = "advanced"
	VocabularyTechnical VocabularyLevel = "technical"
)

var vocabularyLevels = []VocabularyLevel{VocabularySimple, VocabularyModerate, VocabularyAdvanced, VocabularyTechnical}

// ParseVocabularyLevel converts a string into a known VocabularyLevel.
func ParseVocabularyLevel(value string) (VocabularyLevel, bool) {
	return parseEnum(value, vocabularyLevels)
}

// CitationStyle selects how citations are formatted on export.
type CitationStyle string

const (
	CitationAPA           CitationStyle = "apa"
	CitationMLA           CitationStyle = "mla"
	CitationChicagoNotes  CitationStyle = "chicago_notes"
	CitationChicagoAuthor CitationStyle = "chicago_author"
	CitationHarvard       CitationStyle = "harvard"
	CitationIEEE          CitationStyle = "ieee"
	CitationVancouver     CitationStyle = "vancouver"
)

var citationStyles = []CitationStyle{
	CitationAPA, CitationMLA, CitationChicagoNotes, CitationChicagoAuthor,
	CitationHarvard, CitationIEEE, CitationVancouver,
}

// ParseCitationStyle converts a string into a known CitationStyle.
func ParseCitationStyle(value string) (CitationStyle, bool) {
	return parseEnum(value, citationStyles)
}

// ChapterStatus is the maturity of a chapter.
type ChapterStatus string

const (
	ChapterOutline  ChapterStatus = "outline"
	ChapterDraft    ChapterStatus = "draft"
	ChapterReview   ChapterStatus = "review"
	ChapterComplete ChapterStatus = "complete"
)

var chapterStatuses = []ChapterStatus{ChapterOutline, ChapterDraft, ChapterReview, ChapterComplete}

// Rank orders chapter statuses along the forward-only lifecycle.
func (s ChapterStatus) Rank() int {
	switch s {
	case ChapterOutline:
		return 0
	case ChapterDraft:
		return 1
	case ChapterReview:
		return 2
	case ChapterComplete:
		return 3
	default:
		return -1
	}
}

// AtLeast reports whether s is at or beyond other.
func (s ChapterStatus) AtLeast(other ChapterStatus) bool {
	return s.Rank() >= other.Rank()
}

// Next returns the following chapter status, or false at complete.
func (s ChapterStatus) Next() (ChapterStatus, bool) {
	switch s {
	case ChapterOutline:
		return ChapterDraft, true
	case ChapterDraft:
		return ChapterReview, true
	case ChapterReview:
		return ChapterComplete, true
	default:
		return "", false
	}
}

// ParseChapterStatus converts a string into a known ChapterStatus.
func ParseChapterStatus(value string) (ChapterStatus, bool) {
	return parseEnum(value, chapterStatuses)
}

// MaturityCeiling is the highest chapter status a book in the given status admits.
func MaturityCeiling(status BookStatus) ChapterStatus {
	switch status {
	case BookInterview:
		return ChapterOutline
	case BookOutline:
		return ChapterDraft
	default:
		return ChapterComplete
	}
}

// PlaceholderType is the kind of media a placeholder reserves.
type PlaceholderType string

const (
	PlaceholderImage   PlaceholderType = "image"
	PlaceholderChart   PlaceholderType = "chart"
	PlaceholderDiagram PlaceholderType = "diagram"
	PlaceholderVideo   PlaceholderType = "video"
)

var placeholderTypes = []PlaceholderType{PlaceholderImage, PlaceholderChart, PlaceholderDiagram, PlaceholderVideo}

// ParsePlaceholderType converts a string into a known PlaceholderType.
func ParsePlaceholderType(value string) (PlaceholderType, bool) {
	return parseEnum(value, placeholderTypes)
}

// SourceType classifies a citation source.
type SourceType string

const (
	SourceWeb       SourceType = "web"
	SourceBook      SourceType = "book"
	SourceJournal   SourceType = "journal"
	SourceNewspaper SourceType = "newspaper"
	SourceInterview SourceType = "interview"
	SourceVideo     SourceType = "video"
	SourcePodcast   SourceType = "podcast"
	SourceOther     SourceType = "other"
)

var sourceTypes = []SourceType{
	SourceWeb, SourceBook, SourceJournal, SourceNewspaper,
	SourceInterview, SourceVideo, SourcePodcast, SourceOther,
}

// ParseSourceType converts a string into a known SourceType.
func ParseSourceType(value string) (SourceType, bool) {
	return parseEnum(value, sourceTypes)
}

// AssetType classifies a media asset.
type AssetType string

const (
	AssetImage   AssetType = "image"
	AssetAudio   AssetType = "audio"
	AssetVideo   AssetType = "video"
	AssetChart   AssetType = "chart"
	AssetDiagram AssetType = "diagram"
)

var assetTypes = []AssetType{AssetImage, AssetAudio, AssetVideo, AssetChart, AssetDiagram}

// ParseAssetType converts a string into a known AssetType.
func ParseAssetType(value string) (AssetType, bool) {
	return parseEnum(value, assetTypes)
}

// Accepts reports whether an asset of type a can fill a placeholder of type p.
func (a AssetType) Accepts(p PlaceholderType) bool {
	switch p {
	case PlaceholderImage:
		return a == AssetImage
	case PlaceholderChart:
		return a == AssetChart || a == AssetImage
	case PlaceholderDiagram:
		return a == AssetDiagram || a == AssetImage
	case PlaceholderVideo:
		return a == AssetVideo
	default:
		return false
	}
}

// MediaSource names where a media asset came from.
type MediaSource string

const (
	MediaPixabay   MediaSource = "pixabay"
	MediaPexels    MediaSource = "pexels"
	MediaUnsplash  MediaSource = "unsplash"
	MediaStability MediaSource = "stability"
	MediaUpload    MediaSource = "upload"
	MediaGenerated MediaSource = "generated"
)

var mediaSources = []MediaSource{MediaPixabay, MediaPexels, MediaUnsplash, MediaStability, MediaUpload, MediaGenerated}

// ParseMediaSource converts a string into a known MediaSource.
func ParseMediaSource(value string) (MediaSource, bool) {
	return parseEnum(value, mediaSources)
}

// ExportFormat is a rendering target.
type ExportFormat string

const (
	FormatEPUB      ExportFormat = "epub"
	FormatPDF       ExportFormat = "pdf"
	FormatPDFPrint  ExportFormat = "pdf_print"
	FormatAudiobook ExportFormat = "audiobook"
	FormatHTML      ExportFormat = "html"
	FormatKDP       ExportFormat = "kdp"
	FormatIngram    ExportFormat = "ingram"
)

var exportFormats = []ExportFormat{
	FormatEPUB, FormatPDF, FormatPDFPrint, FormatAudiobook, FormatHTML, FormatKDP, FormatIngram,
}

// AllExportFormats returns the ordered list of known formats.
func AllExportFormats() []ExportFormat {
	out := make([]ExportFormat, len(exportFormats))
	copy(out, exportFormats)
	return out
}

// Distributable reports whether the format produces a publishable artifact.
// HTML is a preview format.
func (f ExportFormat) Distributable() bool {
	switch f {
	case FormatEPUB, FormatPDF, FormatPDFPrint, FormatAudiobook, FormatKDP, FormatIngram:
		return true
	default:
		return false
	}
}

// ParseExportFormat converts a string into a known ExportFormat.
func ParseExportFormat(value string) (ExportFormat, bool) {
	return parseEnum(value, exportFormats)
}

// ExportStatus is the state of an export job.
type ExportStatus string

const (
	ExportQueued     ExportStatus = "queued"
	ExportProcessing ExportStatus = "processing"
	ExportComplete   ExportStatus = "complete"
	ExportFailed     ExportStatus = "failed"
)

var exportStatuses = []ExportStatus{ExportQueued, ExportProcessing, ExportComplete, ExportFailed}

// Terminal reports whether no further transition is possible.
func (s ExportStatus) Terminal() bool {
	return s == ExportComplete || s == ExportFailed
}

// ParseExportStatus converts a string into a known ExportStatus.
func ParseExportStatus(value string) (ExportStatus, bool) {
	return parseEnum(value, exportStatuses)
}

// PageSize is the trim size for paginated exports.
type PageSize string

const (
	PageLetter PageSize = "letter"
	PageA4     PageSize = "a4"
	Page6x9    PageSize = "6x9"
	Page5x8    PageSize = "5x8"
)

var pageSizes = []PageSize{PageLetter, PageA4, Page6x9, Page5x8}

// ParsePageSize converts a string into a known PageSize.
func ParsePageSize(value string) (PageSize, bool) {
	return parseEnum(value, pageSizes)
}

func parseEnum[T ~string](value string, known []T) (T, bool) {
	normalized := T(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	for _, candidate := range known {
		if candidate == normalized {
			return candidate, true
		}
	}
	return "", false
}
