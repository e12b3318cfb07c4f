// Command folio is the command-line front end for the book production
// pipeline.
//
// Commands open the SQLite store named by the configuration, authenticate the
// caller from --token (or FOLIO_TOKEN) and invoke the lifecycle, blueprint,
// quality, research and export services in-process. `folio worker run`
// drains queued exports in the background. `folio check` and `folio logs`
// report readiness and recent log records without touching the store.
package main
