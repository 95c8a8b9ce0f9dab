// Package keyfile reads and writes the textual key-file format used by the
// configuration store.
//
// A key-file is a sequence of lines:
//
//	# comment
//	; comment
//	top = value in the default section
//
//	[section]
//	key = value
//
// Names and values are trimmed of surrounding whitespace, the first '='
// separates a key from its value, and CRLF line endings are accepted.
// Parse builds a Document in file order; Encode writes a Document back in
// the same order so that Encode followed by Parse yields an equal Document.
package keyfile
