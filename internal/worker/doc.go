// Package worker drains the durable export queue in the background.
//
// A Manager refuses to start when a required preflight check fails. It holds
// an exclusive file lock on the data directory, fails exports abandoned by a
// previous worker and runs a fixed number of goroutines that poll for queued
// exports and hand them to export.Pipeline.Render. Each
// render is heartbeated so a crashed worker's exports can be recognised and
// failed by the next one. Outcomes are published through notifications.
package worker
