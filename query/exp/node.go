// Package exp provides qualifier expressions over object paths: a closed set
// of node kinds, a text parser and typed property builders.
package exp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind enumerates every expression node type.
type Kind int

const (
	KindAnd Kind = iota
	KindOr
	KindNot
	KindEqual
	KindNotEqual
	KindLess
	KindLessOrEqual
	KindGreater
	KindGreaterOrEqual
	KindLike
	KindLikeIgnoreCase
	KindNotLike
	KindIn
	KindNotIn
	KindBetween
	KindNotBetween
	KindObjPath
	KindDbPath
	KindScalar
	KindParam
	KindFunction
)

var kindNames = map[Kind]string{
	KindAnd:            "and",
	KindOr:             "or",
	KindNot:            "not",
	KindEqual:          "=",
	KindNotEqual:       "<>",
	KindLess:           "<",
	KindLessOrEqual:    "<=",
	KindGreater:        ">",
	KindGreaterOrEqual: ">=",
	KindLike:           "like",
	KindLikeIgnoreCase: "likeIgnoreCase",
	KindNotLike:        "not like",
	KindIn:             "in",
	KindNotIn:          "not in",
	KindBetween:        "between",
	KindNotBetween:     "not between",
	KindObjPath:        "obj:path",
	KindDbPath:         "db:path",
	KindScalar:         "scalar",
	KindParam:          "param",
	KindFunction:       "function",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsComparison reports whether k is a binary comparison.
func (k Kind) IsComparison() bool {
	return k >= KindEqual && k <= KindNotLike
}

// Node is one expression tree node. Which fields are meaningful depends on Kind:
// paths use Path, scalars use Value, params and functions use Name, every
// other kind uses Operands.
type Node struct {
	Kind     Kind
	Operands []*Node
	Path     string
	Value    any
	Name     string
}

// And joins conditions, dropping nils and flattening nested ands.
func And(nodes ...*Node) *Node { return junction(KindAnd, nodes) }

// Or joins conditions, dropping nils and flattening nested ors.
func Or(nodes ...*Node) *Node { return junction(KindOr, nodes) }

func junction(kind Kind, nodes []*Node) *Node {
	var ops []*Node
	for _, n := range nodes {
		switch {
		case n == nil:
		case n.Kind == kind:
			ops = append(ops, n.Operands...)
		default:
			ops = append(ops, n)
		}
	}
	switch len(ops) {
	case 0:
		return nil
	case 1:
		return ops[0]
	}
	return &Node{Kind: kind, Operands: ops}
}

// Not negates a condition.
func Not(n *Node) *Node { return &Node{Kind: KindNot, Operands: []*Node{n}} }

// Path is an object path such as "toArtist.artistName". A segment suffixed
// with "+" requests an outer join.
func Path(p string) *Node { return &Node{Kind: KindObjPath, Path: p} }

// DbPath is a path over table relationships ending in a column.
func DbPath(p string) *Node { return &Node{Kind: KindDbPath, Path: p} }

// Val wraps a literal value.
func Val(v any) *Node { return &Node{Kind: KindScalar, Value: v} }

// Param is a named parameter bound later with Bind.
func Param(name string) *Node { return &Node{Kind: KindParam, Name: name} }

// Fn is a function call such as upper(path).
func Fn(name string, args ...*Node) *Node {
	return &Node{Kind: KindFunction, Name: strings.ToLower(name), Operands: args}
}

// Binary builds a comparison node.
func Binary(kind Kind, left, right *Node) *Node {
	return &Node{Kind: kind, Operands: []*Node{left, right}}
}

// Eq is left = right. A nil scalar on the right renders as IS NULL.
func Eq(left, right *Node) *Node { return Binary(KindEqual, left, right) }

// In builds left in (values...).
func In(left *Node, values ...*Node) *Node {
	return &Node{Kind: KindIn, Operands: append([]*Node{left}, values...)}
}

// Between builds left between lower and upper.
func Between(left, lower, upper *Node) *Node {
	return &Node{Kind: KindBetween, Operands: []*Node{left, lower, upper}}
}

// IsPath reports whether n is an object or db path.
func (n *Node) IsPath() bool {
	return n != nil && (n.Kind == KindObjPath || n.Kind == KindDbPath)
}

// IsNull reports whether n is a nil literal.
func (n *Node) IsNull() bool {
	return n != nil && n.Kind == KindScalar && n.Value == nil
}

// Transform rebuilds the tree bottom-up, replacing each node with fn's result.
func (n *Node) Transform(fn func(*Node) *Node) *Node {
	if n == nil {
		return nil
	}
	cp := *n
	if len(n.Operands) > 0 {
		cp.Operands = make([]*Node, len(n.Operands))
		for i, op := range n.Operands {
			cp.Operands[i] = op.Transform(fn)
		}
	}
	return fn(&cp)
}

// Walk visits n and its descendants depth-first.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, op := range n.Operands {
		op.Walk(fn)
	}
}

// Params returns the distinct parameter names in the tree, sorted.
func (n *Node) Params() []string {
	seen := map[string]bool{}
	n.Walk(func(x *Node) {
		if x.Kind == KindParam {
			seen[x.Name] = true
		}
	})
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bind replaces parameters with scalar values. Missing parameters are an error.
func (n *Node) Bind(params map[string]any) (*Node, error) {
	var missing []string
	out := n.Transform(func(x *Node) *Node {
		if x.Kind != KindParam {
			return x
		}
		v, ok := params[x.Name]
		if !ok {
			missing = append(missing, x.Name)
			return x
		}
		return Val(v)
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnboundParam, strings.Join(missing, ", "))
	}
	return out, nil
}

// String renders the node in the syntax accepted by Parse.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	n.write(&sb, false)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder, nested bool) {
	switch n.Kind {
	case KindAnd, KindOr:
		if nested {
			sb.WriteByte('(')
		}
		for i, op := range n.Operands {
			if i > 0 {
				sb.WriteString(" " + n.Kind.String() + " ")
			}
			op.write(sb, true)
		}
		if nested {
			sb.WriteByte(')')
		}
	case KindNot:
		sb.WriteString("not ")
		n.Operands[0].write(sb, true)
	case KindIn, KindNotIn:
		n.Operands[0].write(sb, true)
		sb.WriteString(" " + n.Kind.String() + " (")
		for i, op := range n.Operands[1:] {
			if i > 0 {
				sb.WriteString(", ")
			}
			op.write(sb, true)
		}
		sb.WriteByte(')')
	case KindBetween, KindNotBetween:
		n.Operands[0].write(sb, true)
		sb.WriteString(" " + n.Kind.String() + " ")
		n.Operands[1].write(sb, true)
		sb.WriteString(" and ")
		n.Operands[2].write(sb, true)
	case KindObjPath:
		sb.WriteString(n.Path)
	case KindDbPath:
		sb.WriteString("db:" + n.Path)
	case KindScalar:
		sb.WriteString(formatLiteral(n.Value))
	case KindParam:
		sb.WriteString("$" + n.Name)
	case KindFunction:
		sb.WriteString(n.Name + "(")
		for i, op := range n.Operands {
			if i > 0 {
				sb.WriteString(", ")
			}
			op.write(sb, true)
		}
		sb.WriteByte(')')
	default:
		if n.Kind.IsComparison() {
			if n.Kind == KindEqual && n.Operands[1].IsNull() {
				n.Operands[0].write(sb, true)
				sb.WriteString(" is null")
				return
			}
			if n.Kind == KindNotEqual && n.Operands[1].IsNull() {
				n.Operands[0].write(sb, true)
				sb.WriteString(" is not null")
				return
			}
			n.Operands[0].write(sb, true)
			sb.WriteString(" " + n.Kind.String() + " ")
			n.Operands[1].write(sb, true)
		}
	}
}

func formatLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return "'" + x.Format(time.RFC3339Nano) + "'"
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
