// Package lipsync optionally matches mouth movement to dubbed audio.
package lipsync
