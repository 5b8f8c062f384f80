// Package pipeline drives dubbing jobs through their stages.
//
// A job moves extract → transcribe → translate → synthesize → lip-sync →
// mux, degrading stage by stage: missing speech becomes demo narration,
// failed translation keeps the original language, and failed synthesis
// completes with placeholder media. Only unreadable input and mux failures
// leave a job failed.
package pipeline
