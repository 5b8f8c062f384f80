// Package subtitles renders translated cues as SRT and WebVTT files.
package subtitles
