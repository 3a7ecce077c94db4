package tmpl

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// Position locates a directive in template source. Line and Column are
// 1-based; Column counts runes.
type Position struct {
	Offset int
	Line   int
	Column int
}

// String returns "line:column".
func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// Template is a parsed template. It is immutable and safe to evaluate
// concurrently.
type Template struct {
	Name   string
	Source string
	Nodes  []Node
}

// Node is an element of a parsed template.
type Node interface {
	Pos() Position
	// String returns the canonical source of the node.
	String() string
}

// TextNode is literal text copied to the output verbatim.
type TextNode struct {
	Position
	Text string
}

// InterpNode is a {{ expr }} interpolation.
type InterpNode struct {
	Position
	Expr Expr
}

// IfNode is an {% if %} block with its elseif and else branches.
// Exactly one branch body, or none, is emitted.
type IfNode struct {
	Position
	Branches []*Branch
}

// Branch is one arm of an IfNode. The else arm has a nil Cond and is
// always last.
type Branch struct {
	Position
	Cond Cond
	Body []Node
}

func (p Position) Pos() Position { return p }

func (n *TextNode) String() string { return n.Text }

func (n *InterpNode) String() string { return "{{ " + n.Expr.String() + " }}" }

func (n *IfNode) String() string {
	var sb strings.Builder

	for i, b := range n.Branches {
		switch {
		case i == 0:
			sb.WriteString("{% if " + b.Cond.String() + " %}")
		case b.Cond == nil:
			sb.WriteString("{% else %}")
		default:
			sb.WriteString("{% elseif " + b.Cond.String() + " %}")
		}

		writeNodes(&sb, b.Body)
	}

	sb.WriteString("{% endif %}")

	return sb.String()
}

// HasElse reports whether the block ends with an else branch.
func (n *IfNode) HasElse() bool {
	return len(n.Branches) > 0 && n.Branches[len(n.Branches)-1].Cond == nil
}

// String returns the canonical source of the template: directives are
// written with single spaces inside their delimiters and whitespace
// control markers have been applied to the surrounding text.
func (t *Template) String() string {
	var sb strings.Builder

	writeNodes(&sb, t.Nodes)

	return sb.String()
}

func writeNodes(sb *strings.Builder, nodes []Node) {
	for _, n := range nodes {
		sb.WriteString(n.String())
	}
}

// Print writes an indented dump of the template tree to w.
func (t *Template) Print(w io.Writer) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "template %q\n", t.Name)
	printNodes(&sb, t.Nodes, 1)

	_, err := io.WriteString(w, sb.String())

	return err
}

func printNodes(sb *strings.Builder, nodes []Node, depth int) {
	indent := strings.Repeat("  ", depth)

	for _, n := range nodes {
		switch n := n.(type) {
		case *TextNode:
			fmt.Fprintf(sb, "%s%s text %q\n", indent, n.Pos(), n.Text)

		case *InterpNode:
			fmt.Fprintf(sb, "%s%s interp %s\n", indent, n.Pos(), n.Expr.Describe())

		case *IfNode:
			fmt.Fprintf(sb, "%s%s if\n", indent, n.Pos())

			for _, b := range n.Branches {
				if b.Cond == nil {
					fmt.Fprintf(sb, "%s  %s else\n", indent, b.Pos())
				} else {
					fmt.Fprintf(sb, "%s  %s branch %s\n", indent, b.Pos(), b.Cond.Describe())
				}

				printNodes(sb, b.Body, depth+2)
			}
		}
	}
}

// Paths returns the sorted, distinct paths referenced by the template,
// in dotted form.
func (t *Template) Paths() []string {
	var paths []string

	Walk(t.Nodes, func(n Node) bool {
		switch n := n.(type) {
		case *InterpNode:
			paths = append(paths, exprPaths(n.Expr)...)
		case *IfNode:
			for _, b := range n.Branches {
				paths = append(paths, condPaths(b.Cond)...)
			}
		}

		return true
	})

	slices.Sort(paths)

	return slices.Compact(paths)
}

// Walk calls fn for each node in depth-first order. Children of an IfNode
// are visited only if fn returns true for it.
func Walk(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		if !fn(n) {
			continue
		}

		if ifn, ok := n.(*IfNode); ok {
			for _, b := range ifn.Branches {
				Walk(b.Body, fn)
			}
		}
	}
}

// Format parses source and returns its canonical form.
func Format(name, source string) (string, error) {
	t, err := Parse(name, source)
	if err != nil {
		return "", err
	}

	return t.String(), nil
}
