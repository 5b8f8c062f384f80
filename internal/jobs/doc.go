// Package jobs tracks dubbing requests through their lifecycle.
//
// The live Store is in-memory: records are cheap, never discarded while the
// daemon runs, and survive artifact cleanup so polling a finished job still
// answers. Finished jobs additionally land in the SQLite-backed HistoryStore
// for per-user dashboards.
package jobs
