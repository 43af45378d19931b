package driven

// MarkupRewriter parses section bodies as HTML fragments.
// Implementations treat the body as immutable input and return a new
// serialisation; they never perform I/O.
type MarkupRewriter interface {
	// ImageSources returns the src value of every image element in
	// document order.
	ImageSources(body string) ([]string, error)

	// RewriteImages calls replace for every image element in document order
	// and sets its src to the returned value. The first error aborts the
	// rewrite.
	RewriteImages(body string, replace func(src string) (string, error)) (string, error)
}
