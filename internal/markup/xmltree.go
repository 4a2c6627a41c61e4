package markup

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// node is a namespace-agnostic in-memory XML element tree. Both the
// prefixed ("uslm:section") and unprefixed ("section") namespace forms the
// legal-markup archives use collapse to the same Name here, since only the
// local part is kept — this is what lets one walker handle both forms
// (spec.md §4.2 requirement).
type node struct {
	Name     string
	Attrs    map[string]string
	Children []*node
	Text     string // concatenated character data directly under this node
	parent   *node
}

func (n *node) attr(name string) (string, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

// find returns the first descendant (depth-first, including n itself) whose
// Name equals name.
func (n *node) find(name string) *node {
	if n.Name == name {
		return n
	}
	for _, c := range n.Children {
		if found := c.find(name); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every descendant (excluding n itself) whose Name equals
// name, in document order.
func (n *node) findAll(name string) []*node {
	var out []*node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
		out = append(out, c.findAll(name)...)
	}
	return out
}

// flattenText returns the plain-text rendering of n: every text run in
// document order, joined with single spaces and collapsed.
func (n *node) flattenText() string {
	var b strings.Builder
	n.writeText(&b)
	return collapseWhitespace(b.String())
}

func (n *node) writeText(b *strings.Builder) {
	if n.Text != "" {
		b.WriteString(n.Text)
		b.WriteString(" ")
	}
	for _, c := range n.Children {
		c.writeText(b)
	}
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// parseXMLTree decodes an XML document into a namespace-agnostic node tree.
// It returns ErrMalformed if the document is not well-formed XML.
func parseXMLTree(data []byte) (*node, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))

	var root *node
	var stack []*node

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{
				Name:  t.Name.Local,
				Attrs: make(map[string]string, len(t.Attr)),
			}
			for _, a := range t.Attr {
				n.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				n.parent = parent
				parent.Children = append(parent.Children, n)
			} else {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unbalanced end element %s", ErrMalformed, t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("%w: unclosed elements", ErrMalformed)
	}

	return root, nil
}
