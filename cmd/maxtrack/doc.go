// Package main hosts the maxtrack CLI entrypoint and command graph.
//
// The serve command runs the HTTP API; the remaining commands answer one
// query against the catalog and print a table, or JSON with --json. Every
// command shares the wiring in application.go, so the CLI and the API see
// the same caches and collaborators.
package main
