// Package translate converts transcript text to the target language.
//
// Providers are tried in order: the free Google endpoint, MyMemory, then a
// configured LibreTranslate instance. A provider echoing the input back is
// treated as a miss, and long sentences get a final clause-by-clause pass
// before the chain reports no result.
package translate
