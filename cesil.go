// # Cesil: A Streaming CSV (De)Serialization Library for Go
//
// Cesil turns a stream of code points into logical CSV events (value,
// end-of-record, comment, escape sequence) and back again, under a
// configurable dialect: separator, optional quoting, optional comments,
// and a choice of row endings. It is built in three layers: a table-driven
// character classifier and state machine at the bottom, a buffered
// pushback reader and a symmetric writer in the middle, and a row
// construction protocol on top that binds columns to typed Go values
// without reflection.
//
// # Features
//
// - Streaming reader with auto-detecting row endings, header discovery,
// and column-to-member binding via explicit descriptors.
// - Buffered writer that encodes escapes only when a value needs them.
// - Structured error reporting keyed by row number and column name.
// - Context-aware variants of every blocking operation for cooperative
// cancellation.
// - Table-driven unit tests across every pipeline stage.
//
// # Getting Started
//
// The module path is `github.com/oleg578/cesil`. Build an [Options] value
// with [NewBuilder], describe your row type's columns with [NewColumn],
// and construct a [Reader] or [Writer] over any [io.Reader]/[io.Writer].
package cesil
