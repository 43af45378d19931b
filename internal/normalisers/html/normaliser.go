package html

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/mspec/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.MarkupRewriter = (*Normaliser)(nil)

// Normaliser enumerates and rewrites image elements in HTML fragments.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// ImageSources returns the src of every <img> in document order. An image
// without a src attribute yields "".
func (n *Normaliser) ImageSources(body string) ([]string, error) {
	nodes, err := parseFragment(body)
	if err != nil {
		return nil, err
	}

	var sources []string
	for _, node := range nodes {
		walkImages(node, func(img *html.Node) error {
			src, _ := attr(img, "src")
			sources = append(sources, src)
			return nil
		})
	}
	return sources, nil
}

// RewriteImages replaces the src of every <img> with replace's result and
// serialises the fragment again. Images without a src get one.
func (n *Normaliser) RewriteImages(body string, replace func(src string) (string, error)) (string, error) {
	nodes, err := parseFragment(body)
	if err != nil {
		return "", err
	}

	for _, node := range nodes {
		err := walkImages(node, func(img *html.Node) error {
			src, _ := attr(img, "src")
			next, err := replace(src)
			if err != nil {
				return err
			}
			setAttr(img, "src", next)
			return nil
		})
		if err != nil {
			return "", err
		}
	}

	var b strings.Builder
	for _, node := range nodes {
		if err := html.Render(&b, node); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}
	return b.String(), nil
}

func parseFragment(body string) ([]*html.Node, error) {
	context := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	nodes, err := html.ParseFragment(strings.NewReader(body), context)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return nodes, nil
}

// walkImages visits img elements depth-first in document order.
func walkImages(n *html.Node, visit func(*html.Node) error) error {
	if n.Type == html.ElementNode && n.DataAtom == atom.Img {
		if err := visit(n); err != nil {
			return err
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := walkImages(c, visit); err != nil {
			return err
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
