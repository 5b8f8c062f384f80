// Package transcribe converts extracted audio to timed text.
//
// Backends run in preference order: a local whisper.cpp-style CLI first,
// then the hosted whisper-1 API when an API key is configured. No backend
// succeeding is not an error; jobs continue with fallback content.
package transcribe
