// Package research resolves chapter media placeholders and gathers citations
// through the media and citation collaborators.
//
// Collaborator calls happen outside store transactions; results are written
// back in a single transaction per operation after re-reading the records
// they touch.
package research
