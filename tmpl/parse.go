package tmpl

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Directive delimiters.
const (
	openInterp  = "{{"
	closeInterp = "}}"
	openBlock   = "{%"
	closeBlock  = "%}"
	trimMarker  = '-'
)

// Parse parses template source. Literal text is kept verbatim; {{ }} and
// {% %} directives are parsed into a typed tree. Conditional blocks nest to
// any depth.
func Parse(name, source string) (*Template, error) {
	p := &parser{
		name:  name,
		input: source,
		line:  1,
		col:   1,
		tmpl:  &Template{Name: name, Source: source},
	}

	if err := p.parse(); err != nil {
		return nil, err
	}

	return p.tmpl, nil
}

// MustParse is like Parse but panics on error.
func MustParse(name, source string) *Template {
	t, err := Parse(name, source)
	if err != nil {
		panic(err)
	}

	return t
}

// parser holds the parser state.
type parser struct {
	name  string
	input string
	pos   int
	line  int
	col   int
	tmpl  *Template
	open  []*IfNode
	text  *TextNode
	trim  bool
}

// directive is a delimited span of the input.
type directive struct {
	pos       Position
	open      string
	raw       string
	body      string
	trimLeft  bool
	trimRight bool
}

func (p *parser) parse() error {
	for !p.eof() {
		i := p.nextDirective()
		if i < 0 {
			p.emitText(p.input[p.pos:])
			p.skip(len(p.input) - p.pos)

			break
		}

		p.emitText(p.input[p.pos:i])
		p.skip(i - p.pos)

		d, err := p.scanDirective()
		if err != nil {
			return err
		}

		if d.trimLeft && p.text != nil {
			p.text.Text = strings.TrimRightFunc(p.text.Text, unicode.IsSpace)
		}

		p.text = nil
		p.trim = d.trimRight

		if err := p.directive(d); err != nil {
			return err
		}
	}

	if n := len(p.open); n > 0 {
		blk := p.open[n-1]

		return p.errorAt(ErrUnclosedBlock, blk.Position, "{% if "+blk.Branches[0].Cond.String()+" %}")
	}

	p.pruneText(&p.tmpl.Nodes)

	return nil
}

// nextDirective returns the offset of the next directive opening at or
// after the current position, or -1.
func (p *parser) nextDirective() int {
	for i := p.pos; i < len(p.input)-1; i++ {
		if p.input[i] != '{' {
			continue
		}

		if c := p.input[i+1]; c == '{' || c == '%' {
			return i
		}
	}

	return -1
}

// scanDirective consumes a directive starting at the current position.
// Quoted strings inside the directive may contain the closing delimiter.
func (p *parser) scanDirective() (directive, error) {
	d := directive{pos: p.position(), open: p.input[p.pos : p.pos+2]}

	closer := closeInterp
	if d.open == openBlock {
		closer = closeBlock
	}

	start := p.pos
	i := start + 2

	var quote byte

	for ; i < len(p.input); i++ {
		c := p.input[i]

		switch {
		case quote != 0 && c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case strings.HasPrefix(p.input[i:], closer):
			d.raw = p.input[start : i+2]
			inner := p.input[start+2 : i]

			if strings.HasPrefix(inner, string(trimMarker)) {
				d.trimLeft = true
				inner = inner[1:]
			}

			if strings.HasSuffix(inner, string(trimMarker)) {
				d.trimRight = true
				inner = inner[:len(inner)-1]
			}

			d.body = strings.TrimSpace(inner)
			p.skip(len(d.raw))

			return d, nil
		}
	}

	raw := p.input[start:]
	if nl := strings.IndexByte(raw, '\n'); nl >= 0 {
		raw = raw[:nl]
	}

	return d, p.errorAt(ErrUnterminated, d.pos, raw)
}

func (p *parser) directive(d directive) error {
	if d.open == openInterp {
		e, err := parseExpr(d.body)
		if err != nil {
			return p.errorAt(err, d.pos, d.raw)
		}

		p.append(&InterpNode{Position: d.pos, Expr: e})

		return nil
	}

	keyword, rest := splitKeyword(d.body)

	switch keyword {
	case "if":
		c, err := parseCond(rest)
		if err != nil {
			return p.errorAt(err, d.pos, d.raw)
		}

		blk := &IfNode{
			Position: d.pos,
			Branches: []*Branch{{Position: d.pos, Cond: c}},
		}

		p.append(blk)
		p.open = append(p.open, blk)

	case "elseif", "elif":
		blk := p.top()
		if blk == nil || blk.HasElse() {
			return p.errorAt(ErrUnexpectedDirective, d.pos, d.raw)
		}

		c, err := parseCond(rest)
		if err != nil {
			return p.errorAt(err, d.pos, d.raw)
		}

		blk.Branches = append(blk.Branches, &Branch{Position: d.pos, Cond: c})

	case "else":
		blk := p.top()
		if blk == nil || blk.HasElse() || rest != "" {
			return p.errorAt(ErrUnexpectedDirective, d.pos, d.raw)
		}

		blk.Branches = append(blk.Branches, &Branch{Position: d.pos})

	case "endif":
		blk := p.top()
		if blk == nil || rest != "" {
			return p.errorAt(ErrUnexpectedDirective, d.pos, d.raw)
		}

		for _, b := range blk.Branches {
			p.pruneText(&b.Body)
		}

		p.open = p.open[:len(p.open)-1]

	default:
		return p.errorAt(ErrUnknownDirective, d.pos, d.raw)
	}

	return nil
}

// splitKeyword splits a block directive body into its keyword and the
// remaining text.
func splitKeyword(body string) (string, string) {
	i := strings.IndexFunc(body, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '_'
	})
	if i < 0 {
		return body, ""
	}

	return body[:i], strings.TrimSpace(body[i:])
}

func (p *parser) top() *IfNode {
	if len(p.open) == 0 {
		return nil
	}

	return p.open[len(p.open)-1]
}

// body returns the node list receiving new nodes.
func (p *parser) body() *[]Node {
	if blk := p.top(); blk != nil {
		return &blk.Branches[len(blk.Branches)-1].Body
	}

	return &p.tmpl.Nodes
}

func (p *parser) append(n Node) {
	*p.body() = append(*p.body(), n)
}

func (p *parser) emitText(s string) {
	pos := p.position()

	if p.trim {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		p.trim = false
	}

	if s == "" {
		return
	}

	p.text = &TextNode{Position: pos, Text: s}
	p.append(p.text)
}

// pruneText drops text nodes emptied by whitespace control.
func (p *parser) pruneText(nodes *[]Node) {
	out := (*nodes)[:0]

	for _, n := range *nodes {
		if t, ok := n.(*TextNode); ok && t.Text == "" {
			continue
		}

		out = append(out, n)
	}

	*nodes = out
}

func (p *parser) errorAt(err error, pos Position, raw string) error {
	e, ok := err.(*Error)
	if !ok {
		e = ErrExpression.Wrap(err)
	}

	return &SyntaxError{
		Err:       e,
		Name:      p.name,
		Pos:       pos,
		Directive: raw,
		Source:    p.input,
	}
}

// Helper methods

func (p *parser) skip(n int) {
	end := min(p.pos+n, len(p.input))

	for p.pos < end {
		r, size := utf8.DecodeRuneInString(p.input[p.pos:])

		p.pos += size
		if r == '\n' {
			p.line++
			p.col = 1
		} else {
			p.col++
		}
	}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) position() Position {
	return Position{
		Offset: p.pos,
		Line:   p.line,
		Column: p.col,
	}
}
