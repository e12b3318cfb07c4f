// Package lifecycle owns the book and chapter state machines.
//
// Every mutation of a book's chapters or sections runs through Service inside
// a single store transaction: the chapter word count is recomputed from its
// text, the book's current_word_count is re-summed from its chapters, the
// automatic cascades (outline → writing → editing) are applied in one pass,
// and the book row is written back with an optimistic version check.
//
// The explicit transitions RequestReview and Publish evaluate every
// precondition first and return a services.PreconditionError naming each
// unmet condition; nothing is written when any condition fails.
package lifecycle
