// Package preflight provides readiness checks for the filesystem paths and
// external services folio depends on.
//
// These checks run in two contexts:
//   - The export worker calls RunAll before it claims any export and refuses
//     to start when a required check fails.
//   - The CLI "folio check" command prints every result.
//
// Checks for optional integrations are skipped when the integration is not
// configured, and their failures never block the worker.
package preflight
