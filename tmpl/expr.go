package tmpl

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/expr-lang/expr/ast"
	exprparser "github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/parser/utils"

	"github.com/ardnew/blockcss/theme"
)

// Expr is an interpolation expression or an operand of a condition.
type Expr interface {
	// String returns the canonical source of the expression.
	String() string
	// Describe returns a short structural description for tree dumps.
	Describe() string
	expr()
}

// PathExpr is a dotted path such as fields.text_color or block_id.
type PathExpr struct {
	Segments []string
}

// LiteralExpr is a string, number or boolean constant.
type LiteralExpr struct {
	Value Value
}

// CallExpr is a call to a token resolver function.
type CallExpr struct {
	Func     string
	Category theme.Category
	Arg      Expr
}

// ArithExpr divides or multiplies a path value by a number.
type ArithExpr struct {
	Op    string
	Left  *PathExpr
	Right float64
}

func (*PathExpr) expr()    {}
func (*LiteralExpr) expr() {}
func (*CallExpr) expr()    {}
func (*ArithExpr) expr()   {}

// envRoot is the expression environment. A root segment that cannot be
// written as a name is indexed on it: $env["segment"].
const envRoot = "$env"

// reserved names read back as operators or literals, not identifiers.
var reserved = map[string]bool{
	"not": true, "in": true, "or": true, "and": true, "matches": true,
	"contains": true, "startsWith": true, "endsWith": true, "let": true,
	"if": true, "else": true, "true": true, "false": true, "nil": true,
	envRoot: true,
}

// plainSegment reports whether seg can be written as a bare name: an
// identifier, or identifier characters joined by single hyphens.
func plainSegment(seg string) bool {
	first, rest, hyphenated := strings.Cut(seg, "-")
	if !utils.IsValidIdentifier(first) {
		return false
	}

	if !hyphenated {
		return !reserved[first]
	}

	for part := range strings.SplitSeq(rest, "-") {
		if part == "" || alnumEnd(part, 0) != len(part) {
			return false
		}
	}

	return true
}

func (e *PathExpr) String() string {
	var sb strings.Builder

	for i, seg := range e.Segments {
		switch {
		case !plainSegment(seg) && i == 0:
			sb.WriteString(envRoot + "[" + strconv.Quote(seg) + "]")
		case !plainSegment(seg):
			sb.WriteString("[" + strconv.Quote(seg) + "]")
		case i > 0:
			sb.WriteString("." + seg)
		default:
			sb.WriteString(seg)
		}
	}

	return sb.String()
}

func (e *PathExpr) Describe() string { return "path " + e.String() }

func (e *LiteralExpr) String() string {
	if e.Value.Kind() == KindString {
		return strconv.Quote(e.Value.Text())
	}

	return e.Value.Text()
}

func (e *LiteralExpr) Describe() string {
	return e.Value.Kind().String() + " " + e.String()
}

func (e *CallExpr) String() string { return e.Func + "(" + e.Arg.String() + ")" }

func (e *CallExpr) Describe() string {
	return "call " + e.Func + " [" + string(e.Category) + "] (" + e.Arg.Describe() + ")"
}

func (e *ArithExpr) String() string {
	return e.Left.String() + " " + e.Op + " " + formatNumber(e.Right)
}

func (e *ArithExpr) Describe() string {
	return "arith " + e.Op + " (" + e.Left.Describe() + ", " + formatNumber(e.Right) + ")"
}

// Cond is the condition of an if or elseif branch.
type Cond interface {
	// String returns the canonical source of the condition.
	String() string
	// Describe returns a short structural description for tree dumps.
	Describe() string
	cond()
}

// CompareCond tests two operands for equality (==) or inequality (!=).
type CompareCond struct {
	Op          string
	Left, Right Expr
}

// TruthyCond holds when its operand is truthy.
type TruthyCond struct {
	Operand Expr
}

// AndCond holds when both of its terms hold. Longer conjunctions nest on
// the left.
type AndCond struct {
	Left, Right Cond
}

func (*CompareCond) cond() {}
func (*TruthyCond) cond()  {}
func (*AndCond) cond()     {}

func (c *CompareCond) String() string {
	return c.Left.String() + " " + c.Op + " " + c.Right.String()
}

func (c *CompareCond) Describe() string {
	return "compare " + c.Op + " (" + c.Left.Describe() + ", " + c.Right.Describe() + ")"
}

func (c *TruthyCond) String() string   { return c.Operand.String() }
func (c *TruthyCond) Describe() string { return "truthy (" + c.Operand.Describe() + ")" }

func (c *AndCond) String() string { return c.Left.String() + " and " + c.Right.String() }

func (c *AndCond) Describe() string {
	return "and (" + c.Left.Describe() + ", " + c.Right.Describe() + ")"
}

// parseExpr parses the body of an interpolation.
func parseExpr(src string) (Expr, error) {
	node, err := parseTree(src)
	if err != nil {
		return nil, err
	}

	switch n := node.(type) {
	case *ast.CallNode:
		return convertCall(n)

	case *ast.BinaryNode:
		if n.Operator == "/" || n.Operator == "*" {
			return convertArith(n)
		}
	}

	return convertOperand(node)
}

// parseCond parses the condition of an if or elseif directive.
func parseCond(src string) (Cond, error) {
	node, err := parseTree(src)
	if err != nil {
		return nil, err
	}

	return convertCond(node)
}

func parseTree(src string) (ast.Node, error) {
	if strings.TrimSpace(src) == "" {
		return nil, ErrExpression.Wrapf("empty expression")
	}

	tree, err := exprparser.Parse(quoteHyphenated(src))
	if err != nil {
		return nil, ErrExpression.Wrap(err)
	}

	return tree.Node, nil
}

func convertCond(node ast.Node) (Cond, error) {
	if n, ok := node.(*ast.BinaryNode); ok {
		switch n.Operator {
		case "and", "&&":
			left, err := convertCond(n.Left)
			if err != nil {
				return nil, err
			}

			right, err := convertCond(n.Right)
			if err != nil {
				return nil, err
			}

			return &AndCond{Left: left, Right: right}, nil

		case "==", "!=":
			left, err := convertOperand(n.Left)
			if err != nil {
				return nil, err
			}

			right, err := convertOperand(n.Right)
			if err != nil {
				return nil, err
			}

			return &CompareCond{Op: n.Operator, Left: left, Right: right}, nil
		}
	}

	operand, err := convertOperand(node)
	if err != nil {
		return nil, err
	}

	return &TruthyCond{Operand: operand}, nil
}

// convertOperand converts a path or literal.
func convertOperand(node ast.Node) (Expr, error) {
	if path, ok := convertPath(node); ok {
		return path, nil
	}

	if v, ok := convertLiteral(node); ok {
		return &LiteralExpr{Value: v}, nil
	}

	return nil, unsupported(node)
}

func convertCall(n *ast.CallNode) (Expr, error) {
	callee, ok := n.Callee.(*ast.IdentifierNode)
	if !ok {
		return nil, unsupported(n)
	}

	category, ok := theme.Resolver(callee.Value)
	if !ok {
		return nil, ErrUnknownFunction.Wrapf("%s", callee.Value)
	}

	if len(n.Arguments) != 1 {
		return nil, ErrExpression.Wrapf("%s takes 1 argument, got %d",
			callee.Value, len(n.Arguments))
	}

	arg, err := convertOperand(n.Arguments[0])
	if err != nil {
		return nil, err
	}

	return &CallExpr{Func: callee.Value, Category: category, Arg: arg}, nil
}

func convertArith(n *ast.BinaryNode) (Expr, error) {
	left, ok := convertPath(n.Left)
	if !ok {
		return nil, ErrExpression.Wrapf("left operand of %q must be a path", n.Operator)
	}

	right, ok := convertLiteral(n.Right)
	if !ok || right.Kind() != KindNumber {
		return nil, ErrExpression.Wrapf("right operand of %q must be a number", n.Operator)
	}

	f, _ := right.Float()

	return &ArithExpr{Op: n.Operator, Left: left, Right: f}, nil
}

// convertPath converts identifier and member chains, joining hyphenated
// names that the expression parser reads as subtraction.
func convertPath(node ast.Node) (*PathExpr, bool) {
	segs, ok := pathSegments(node)
	if !ok {
		return nil, false
	}

	return &PathExpr{Segments: segs}, true
}

func pathSegments(node ast.Node) ([]string, bool) {
	switch n := node.(type) {
	case *ast.IdentifierNode:
		if n.Value == envRoot {
			return nil, false
		}

		return []string{n.Value}, true

	case *ast.MemberNode:
		if n.Optional || n.Method {
			return nil, false
		}

		prop, ok := n.Property.(*ast.StringNode)
		if !ok {
			return nil, false
		}

		if root, ok := n.Node.(*ast.IdentifierNode); ok && root.Value == envRoot {
			return []string{prop.Value}, true
		}

		base, ok := pathSegments(n.Node)
		if !ok {
			return nil, false
		}

		return append(base, prop.Value), true

	case *ast.BinaryNode:
		if n.Operator != "-" {
			return nil, false
		}

		right, ok := n.Right.(*ast.IdentifierNode)
		if !ok {
			return nil, false
		}

		base, ok := pathSegments(n.Left)
		if !ok {
			return nil, false
		}

		base[len(base)-1] += "-" + right.Value

		return base, true
	}

	return nil, false
}

func convertLiteral(node ast.Node) (Value, bool) {
	switch n := node.(type) {
	case *ast.StringNode:
		return StringValue(n.Value), true
	case *ast.IntegerNode:
		return NumberValue(float64(n.Value)), true
	case *ast.FloatNode:
		return NumberValue(n.Value), true
	case *ast.BoolNode:
		return BoolValue(n.Value), true
	case *ast.UnaryNode:
		if n.Operator == "-" || n.Operator == "+" {
			if v, ok := convertLiteral(n.Node); ok && v.Kind() == KindNumber {
				if n.Operator == "-" {
					v.num = -v.num
				}

				return v, true
			}
		}
	}

	return Absent, false
}

func unsupported(node ast.Node) error {
	return ErrExpression.Wrapf("unsupported expression %q", node.String())
}

func exprPaths(x Expr) []string {
	switch x := x.(type) {
	case *PathExpr:
		return []string{strings.Join(x.Segments, ".")}
	case *CallExpr:
		return exprPaths(x.Arg)
	case *ArithExpr:
		return exprPaths(x.Left)
	default:
		return nil
	}
}

func condPaths(c Cond) []string {
	switch c := c.(type) {
	case *AndCond:
		return append(condPaths(c.Left), condPaths(c.Right)...)
	case *CompareCond:
		return append(exprPaths(c.Left), exprPaths(c.Right)...)
	case *TruthyCond:
		return exprPaths(c.Operand)
	default:
		return nil
	}
}

// quoteHyphenated rewrites hyphenated names outside string literals into
// index form, so fields.col-2 reaches the expression parser as
// fields["col-2"] and a root name text-color as $env["text-color"].
// Hyphens inside names never denote subtraction.
func quoteHyphenated(src string) string {
	var sb strings.Builder

	for i := 0; i < len(src); {
		r, w := utf8.DecodeRuneInString(src[i:])
		prev, _ := utf8.DecodeLastRuneInString(src[:i])
		wordStart := i == 0 || !utils.IsAlphaNumeric(prev)

		switch {
		case r == '"' || r == '\'' || r == '`':
			j := quotedEnd(src, i)
			sb.WriteString(src[i:j])
			i = j

		case wordStart && r >= '0' && r <= '9':
			j := numberEnd(src, i)
			sb.WriteString(src[i:j])
			i = j

		case wordStart && utils.IsAlphabetic(r):
			j, hyphenated := nameEnd(src, i)
			name := src[i:j]

			switch {
			case !hyphenated:
				sb.WriteString(name)
			case i > 0 && prev == '.':
				s := sb.String()
				sb.Reset()
				sb.WriteString(s[:len(s)-1] + "[" + strconv.Quote(name) + "]")
			default:
				sb.WriteString(envRoot + "[" + strconv.Quote(name) + "]")
			}

			i = j

		default:
			sb.WriteString(src[i : i+w])
			i += w
		}
	}

	return sb.String()
}

// alnumEnd returns the offset of the first non-identifier rune at or after
// i.
func alnumEnd(src string, i int) int {
	for i < len(src) {
		r, w := utf8.DecodeRuneInString(src[i:])
		if !utils.IsAlphaNumeric(r) {
			break
		}

		i += w
	}

	return i
}

// nameEnd returns the end of the name starting at i, extended over
// hyphens that are followed by identifier characters.
func nameEnd(src string, i int) (end int, hyphenated bool) {
	end = alnumEnd(src, i)

	for end+1 < len(src) && src[end] == '-' {
		r, _ := utf8.DecodeRuneInString(src[end+1:])
		if !utils.IsAlphaNumeric(r) {
			break
		}

		end = alnumEnd(src, end+1)
		hyphenated = true
	}

	return end, hyphenated
}

// numberEnd returns the end of the numeric literal starting at i,
// including a fraction and a signed exponent.
func numberEnd(src string, i int) int {
	isDigit := func(j int) bool { return j < len(src) && src[j] >= '0' && src[j] <= '9' }

	j := alnumEnd(src, i)

	if j < len(src) && src[j] == '.' && isDigit(j+1) {
		j = alnumEnd(src, j+1)
	}

	hex := strings.HasPrefix(src[i:], "0x") || strings.HasPrefix(src[i:], "0X")

	if !hex && j > i && (src[j-1] == 'e' || src[j-1] == 'E') &&
		j < len(src) && (src[j] == '-' || src[j] == '+') && isDigit(j+1) {
		j = alnumEnd(src, j+1)
	}

	return j
}

// quotedEnd returns the offset just past the string literal opening at i,
// or the end of src if it is unterminated.
func quotedEnd(src string, i int) int {
	quote := src[i]

	for j := i + 1; j < len(src); j++ {
		switch {
		case src[j] == '\\' && quote != '`':
			j++
		case src[j] == quote:
			return j + 1
		}
	}

	return len(src)
}
