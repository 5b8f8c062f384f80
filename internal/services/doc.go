// Package services holds the error taxonomy and context plumbing shared by
// the provider-facing packages (transcription, translation, synthesis,
// lip-sync, muxing).
//
// Errors are tagged with sentinel markers so the pipeline can tell an
// expected shortfall (ErrUnavailable, ErrNoResult) apart from a genuine
// failure and choose degrade-vs-abort deliberately instead of via blanket
// recovery.
package services
