// Package language holds the target-language catalog shared by the upload
// validation path, the translation providers, and speech synthesis.
package language
