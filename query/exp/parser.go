package exp

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// QualifierLexer tokenizes qualifier text.
var QualifierLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "DbPrefix", Pattern: `db:`},
	{Name: "Param", Pattern: `\$[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Float", Pattern: `\d+\.\d+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Operator", Pattern: `<>|!=|<=|>=|=|<|>`},
	{Name: "Punct", Pattern: `[().,+\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type rawOr struct {
	Left  *rawAnd   `@@`
	Right []*rawAnd `( "or" @@ )*`
}

type rawAnd struct {
	Left  *rawNot   `@@`
	Right []*rawNot `( "and" @@ )*`
}

type rawNot struct {
	Not  bool          `@"not"?`
	Pred *rawPredicate `@@`
}

type rawPredicate struct {
	Group *rawOr         `  "(" @@ ")"`
	Cmp   *rawComparison `| @@`
}

type rawComparison struct {
	Left *rawOperand `@@`
	Tail *rawTail    `@@?`
}

type rawTail struct {
	Binary    *rawBinary    `  @@`
	IsNull    *rawIsNull    `| @@`
	Negatable *rawNegatable `| @@`
}

type rawBinary struct {
	Op    string      `@Operator`
	Right *rawOperand `@@`
}

type rawIsNull struct {
	Not bool `"is" @"not"? "null"`
}

type rawNegatable struct {
	Not bool          `@"not"?`
	Op  *rawNegatedOp `@@`
}

type rawNegatedOp struct {
	In             []*rawOperand `  "in" "(" @@ ( "," @@ )* ")"`
	Like           *rawOperand   `| "like" @@`
	LikeIgnoreCase *rawOperand   `| "likeIgnoreCase" @@`
	Between        *rawBetween   `| "between" @@`
}

type rawBetween struct {
	Lower *rawOperand `@@ "and"`
	Upper *rawOperand `@@`
}

type rawOperand struct {
	Param   *string      `  @Param`
	Literal *rawLiteral  `| @@`
	Func    *rawFunction `| @@`
	Path    *rawPath     `| @@`
}

type rawBool bool

func (b *rawBool) Capture(values []string) error {
	*b = rawBool(strings.EqualFold(values[0], "true"))
	return nil
}

type rawLiteral struct {
	Str    *string    `  @String`
	Number *rawNumber `| @@`
	Bool   *rawBool   `| @("true" | "false")`
	Null   bool       `| @"null"`
}

type rawNumber struct {
	Neg    bool       `@"-"?`
	Digits *rawDigits `@@`
}

type rawDigits struct {
	Float *float64 `  @Float`
	Int   *int64   `| @Int`
}

type rawFunction struct {
	Name string        `@Ident "("`
	Args []*rawOperand `( @@ ( "," @@ )* )? ")"`
}

type rawSegment struct {
	Name  string `@Ident`
	Outer bool   `@"+"?`
}

type rawPath struct {
	Db       bool          `@DbPrefix?`
	Segments []*rawSegment `@@ ( "." @@ )*`
}

var qualifierParser = participle.MustBuild[rawOr](
	participle.Lexer(QualifierLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Ident"),
	participle.UseLookahead(4),
)

// Parse parses qualifier text such as
//
//	paintingArray+.estimatedPrice > $min and artistName like 'A%'
func Parse(text string) (*Node, error) {
	raw, err := qualifierParser.ParseString("", text)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, text, err)
	}
	return raw.node()
}

// MustParse is Parse that panics on error. Intended for static qualifiers.
func MustParse(text string) *Node {
	n, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return n
}

func (r *rawOr) node() (*Node, error) {
	left, err := r.Left.node()
	if err != nil {
		return nil, err
	}
	ops := []*Node{left}
	for _, a := range r.Right {
		n, err := a.node()
		if err != nil {
			return nil, err
		}
		ops = append(ops, n)
	}
	return Or(ops...), nil
}

func (r *rawAnd) node() (*Node, error) {
	left, err := r.Left.node()
	if err != nil {
		return nil, err
	}
	ops := []*Node{left}
	for _, a := range r.Right {
		n, err := a.node()
		if err != nil {
			return nil, err
		}
		ops = append(ops, n)
	}
	return And(ops...), nil
}

func (r *rawNot) node() (*Node, error) {
	var (
		n   *Node
		err error
	)
	if r.Pred.Group != nil {
		n, err = r.Pred.Group.node()
	} else {
		n, err = r.Pred.Cmp.node()
	}
	if err != nil {
		return nil, err
	}
	if r.Not {
		return Not(n), nil
	}
	return n, nil
}

var binaryKinds = map[string]Kind{
	"=":  KindEqual,
	"<>": KindNotEqual,
	"!=": KindNotEqual,
	"<":  KindLess,
	"<=": KindLessOrEqual,
	">":  KindGreater,
	">=": KindGreaterOrEqual,
}

func (r *rawComparison) node() (*Node, error) {
	left := r.Left.node()
	t := r.Tail
	if t == nil {
		// a bare boolean path reads as path = true
		if left.IsPath() {
			return Eq(left, Val(true)), nil
		}
		return nil, fmt.Errorf("%w: %s is not a condition", ErrSyntax, left)
	}

	switch {
	case t.Binary != nil:
		return Binary(binaryKinds[t.Binary.Op], left, t.Binary.Right.node()), nil
	case t.IsNull != nil:
		if t.IsNull.Not {
			return Binary(KindNotEqual, left, Val(nil)), nil
		}
		return Eq(left, Val(nil)), nil
	}

	op := t.Negatable.Op
	not := t.Negatable.Not
	switch {
	case op.In != nil:
		values := make([]*Node, len(op.In))
		for i, v := range op.In {
			values[i] = v.node()
		}
		n := In(left, values...)
		if not {
			n.Kind = KindNotIn
		}
		return n, nil
	case op.Like != nil:
		kind := KindLike
		if not {
			kind = KindNotLike
		}
		return Binary(kind, left, op.Like.node()), nil
	case op.LikeIgnoreCase != nil:
		n := Binary(KindLikeIgnoreCase, left, op.LikeIgnoreCase.node())
		if not {
			return Not(n), nil
		}
		return n, nil
	default:
		n := Between(left, op.Between.Lower.node(), op.Between.Upper.node())
		if not {
			n.Kind = KindNotBetween
		}
		return n, nil
	}
}

func (r *rawOperand) node() *Node {
	switch {
	case r.Param != nil:
		return Param(strings.TrimPrefix(*r.Param, "$"))
	case r.Literal != nil:
		return Val(r.Literal.value())
	case r.Func != nil:
		args := make([]*Node, len(r.Func.Args))
		for i, a := range r.Func.Args {
			args[i] = a.node()
		}
		return Fn(r.Func.Name, args...)
	default:
		parts := make([]string, len(r.Path.Segments))
		for i, s := range r.Path.Segments {
			parts[i] = s.Name
			if s.Outer {
				parts[i] += "+"
			}
		}
		p := strings.Join(parts, ".")
		if r.Path.Db {
			return DbPath(p)
		}
		return Path(p)
	}
}

func (l *rawLiteral) value() any {
	switch {
	case l.Str != nil:
		s := *l.Str
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	case l.Number != nil:
		d := l.Number.Digits
		if d.Float != nil {
			if l.Number.Neg {
				return -*d.Float
			}
			return *d.Float
		}
		if l.Number.Neg {
			return -*d.Int
		}
		return *d.Int
	case l.Bool != nil:
		return bool(*l.Bool)
	default:
		return nil
	}
}
