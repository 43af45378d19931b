// Package connectors builds the document source a run reads from.
//
// Each source type registers a builder with a Factory. The built-ins are
// "spectool", the remote spec tool API, and "directory", an offline copy
// of its JSON responses.
package connectors
