// Package ndjson reads and writes newline-delimited JSON.
//
// A Reader yields one JSON value per line and reports malformed lines as
// *ParseError without ending the stream. A Writer encodes one value per
// call and emits it, newline included, in a single Write.
package ndjson
