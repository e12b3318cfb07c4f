// Package logs tails the folio log file for the "folio logs" command.
//
// It streams the file with bounded memory, supports a negative offset for
// "last N lines" reads and polls for appended lines in follow mode. A Match
// function narrows output to the records of one book or export.
package logs
