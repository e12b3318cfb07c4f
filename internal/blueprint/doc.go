// Package blueprint expands an interview blueprint into chapter and section
// skeletons for a book.
//
// Expansion runs in one store transaction. A book that already has chapters
// is only re-expanded with Options.Replace, and then only when none of its
// chapters carry authored content.
package blueprint
