// Package audio extracts normalized WAV tracks from uploaded videos.
//
// Extraction always produces mono 16 kHz PCM, the input format the
// transcription backends expect. Videos without an audio stream get a short
// silent placeholder track so downstream stages never see a missing file.
package audio
