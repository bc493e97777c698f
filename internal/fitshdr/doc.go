// Package fitshdr reads and edits FITS header units.
//
// A FITS header is a sequence of 80-byte cards packed into 2880-byte
// blocks, terminated by an END card. This package parses that card
// structure, exposes typed keyword access, and can rewrite a header in
// place while preserving card order and block padding.
//
// Only header manipulation lives here. Reading full data units (image
// arrays, tables) is delegated to github.com/siravan/fits, which this
// package complements: that library is read-only, so the write path
// (Set, Delete, WriteFile) is implemented here.
//
// Keyword helpers specific to NIRSpec exposures (detector, exposure
// type, opaque-filter rewriting) live in keywords.go.
package fitshdr
