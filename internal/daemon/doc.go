// Package daemon wires the job supervisor to the HTTP API and enforces
// single-instance execution.
package daemon
