// Package xmldom reads a whole XML document into a small mutable tree.
//
// The GDTF description format is element/attribute shaped with no meaningful
// text content, so character data, comments and processing instructions are
// discarded. Well-formedness is the only hard requirement; everything above
// that level is tolerated and judged by the caller.
package xmldom

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// Node is one element of the document tree.
type Node struct {
	Tag      string
	Attrs    []Attr
	Children []*Node
}

// Attr is a single attribute in document order.
type Attr struct {
	Name  string
	Value string
}

// Parse reads data into a tree and returns the root element. A non-well-formed
// document or an empty one is an error; nothing else is.
func Parse(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var root *Node
	var stack []*Node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Tag: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				n.Attrs = append(n.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("invalid XML: multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}
	if root == nil {
		return nil, fmt.Errorf("invalid XML: no root element")
	}
	return root, nil
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets or appends an attribute.
func (n *Node) SetAttr(name, value string) {
	for i, a := range n.Attrs {
		if a.Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// Child returns the first child element with the given tag.
func (n *Node) Child(tag string) (*Node, bool) {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c, true
		}
	}
	return nil, false
}

// ChildrenByTag returns all child elements with the given tag, in order.
func (n *Node) ChildrenByTag(tag string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// IndexAmongSiblings returns the position of child among n's children that
// share child's tag, or -1 when child is not one of n's children.
func (n *Node) IndexAmongSiblings(child *Node) int {
	i := 0
	for _, c := range n.Children {
		if c == child {
			return i
		}
		if c.Tag == child.Tag {
			i++
		}
	}
	return -1
}

// Encode writes the tree as indented XML, preceded by the standard header
// line. Attribute order is as stored; callers that need deterministic output
// should populate attributes deterministically.
func Encode(w io.Writer, root *Node) error {
	if _, err := io.WriteString(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"); err != nil {
		return err
	}
	return encodeNode(w, root, 0)
}

func encodeNode(w io.Writer, n *Node, depth int) error {
	var b bytes.Buffer
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
	b.WriteByte('<')
	b.WriteString(n.Tag)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		if err := xml.EscapeText(&b, []byte(a.Value)); err != nil {
			return err
		}
		b.WriteByte('"')
	}
	if len(n.Children) == 0 {
		b.WriteString("/>\n")
		if _, err := w.Write(b.Bytes()); err != nil {
			return err
		}
		return nil
	}
	b.WriteString(">\n")
	if _, err := w.Write(b.Bytes()); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := encodeNode(w, c, depth+1); err != nil {
			return err
		}
	}
	b.Reset()
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteString(">\n")
	_, err := w.Write(b.Bytes())
	return err
}
