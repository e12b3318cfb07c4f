// Package textutil provides small text helpers shared across packages.
//
// Slug turns free-form titles into lowercase ASCII tokens that are safe to
// use as artifact file names and object storage keys.
package textutil
