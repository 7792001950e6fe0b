package schemathesis

// Test-only exports for internal functions.
var (
	DecodeDocument = decodeDocument
	SourceName     = sourceName
)
