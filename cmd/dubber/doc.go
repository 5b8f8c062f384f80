// Command dubber is the CLI client for the dubbing daemon.
package main
