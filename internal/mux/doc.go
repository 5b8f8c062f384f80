// Package mux combines original video frames with dubbed audio.
package mux
