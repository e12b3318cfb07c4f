// Package render turns the canonical export Document into artifact bytes.
//
// A Registry dispatches on the document format. EPUB output is built with
// go-epub, HTML with html/template over bluemonday-sanitised fragments, and
// audiobook output is a UTF-8 narration script. pdf and pdf_print print the
// HTML rendering through an external converter when export.pdf_command is
// set. Formats without a renderer fail with services.ErrRenderFailed so the
// export is recorded as failed.
package render
