// Package content defines the durable record shapes of the book production
// pipeline: books, chapters, sections, media placeholders, citations, media
// assets, exports, quality reports, and blueprints.
//
// The package owns the closed enumerations used across folio, constructors
// that apply defaults, Validate methods that reject malformed records, and the
// derived-value helpers (CountWords, CheckOrder) that keep word counts and
// ordering honest. It performs no I/O.
package content
