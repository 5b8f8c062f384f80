// Package synth renders translated text as dubbed speech.
//
// Three strategies run in preference order: voice cloning against the
// original speaker audio, per-segment synthesis time-stretched to match the
// source timing, and finally one unaligned take of the whole transcript.
package synth
