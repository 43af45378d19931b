// Package html implements driven.MarkupRewriter on top of the
// golang.org/x/net/html tokenizer and tree builder. Section bodies are
// parsed as fragments in a <body> context, so stray text, unclosed tags
// and entity references are handled the way a browser would.
package html
