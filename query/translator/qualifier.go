package translator

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/query/exp"
)

// QualifierTranslator renders expression trees as SQL conditions. Object
// paths are resolved relative to one identification variable.
type QualifierTranslator struct {
	ctx      *Context
	paths    *PathTranslator
	variable string
}

func NewQualifierTranslator(ctx *Context, variable string) *QualifierTranslator {
	return &QualifierTranslator{ctx: ctx, paths: NewPathTranslator(ctx), variable: variable}
}

// Translate renders node after the adapter's rewrites. Arguments are bound
// in the context in the order they appear in the returned text.
func (q *QualifierTranslator) Translate(node *exp.Node) (string, error) {
	if node == nil {
		return "", nil
	}
	return q.condition(q.ctx.adapter.RewriteNode(node), false)
}

// Path resolves an expression path node.
func (q *QualifierTranslator) Path(n *exp.Node) (*Operand, error) {
	switch n.Kind {
	case exp.KindObjPath:
		path := strings.TrimPrefix(n.Path, "obj:")
		if path == "" {
			return q.paths.Translate(q.variable)
		}
		return q.paths.Translate(q.variable + "." + path)
	case exp.KindDbPath:
		return q.paths.TranslateDb(q.variable, strings.TrimPrefix(n.Path, "db:"))
	}
	return nil, fmt.Errorf("%s is not a path", n.Kind)
}

func (q *QualifierTranslator) condition(n *exp.Node, nested bool) (string, error) {
	switch n.Kind {
	case exp.KindAnd, exp.KindOr:
		sep := " AND "
		if n.Kind == exp.KindOr {
			sep = " OR "
		}
		parts := make([]string, 0, len(n.Operands))
		for _, op := range n.Operands {
			s, err := q.condition(op, true)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		out := strings.Join(parts, sep)
		if nested && len(parts) > 1 {
			out = "(" + out + ")"
		}
		return out, nil

	case exp.KindNot:
		s, err := q.condition(n.Operands[0], false)
		if err != nil {
			return "", err
		}
		return "NOT (" + s + ")", nil

	case exp.KindIn, exp.KindNotIn:
		return q.in(n)

	case exp.KindBetween, exp.KindNotBetween:
		return q.between(n)
	}

	if n.Kind.IsComparison() {
		return q.comparison(n)
	}
	return "", fmt.Errorf("%s cannot be used as a condition", n.Kind)
}

// term renders a value expression. Scalars compared with a relationship
// operand are converted to the key value of the matching column.
func (q *QualifierTranslator) term(n *exp.Node, match *Operand) (string, *Operand, error) {
	switch n.Kind {
	case exp.KindObjPath, exp.KindDbPath:
		op, err := q.Path(n)
		if err != nil {
			return "", nil, err
		}
		if op.IsMultiColumn() {
			return "", op, nil
		}
		return q.ctx.Column(op.Columns[0]), op, nil

	case exp.KindScalar:
		if n.Value == nil {
			return "NULL", nil, nil
		}
		v := n.Value
		if match != nil && match.Relationship {
			var err error
			if v, err = keyValue(v, match.Columns[0]); err != nil {
				return "", nil, err
			}
		}
		return q.ctx.Bind(v), nil, nil

	case exp.KindParam:
		return "", nil, fmt.Errorf("%w: %s", exp.ErrUnboundParam, n.Name)

	case exp.KindFunction:
		s, err := q.function(n)
		return s, nil, err
	}
	return "", nil, fmt.Errorf("%s cannot be used as a value", n.Kind)
}

func (q *QualifierTranslator) function(n *exp.Node) (string, error) {
	name := q.ctx.adapter.FunctionName(n.Name)
	if len(n.Operands) == 0 && strings.EqualFold(n.Name, "count") {
		return name + "(*)", nil
	}
	args := make([]string, len(n.Operands))
	for i, op := range n.Operands {
		s, o, err := q.term(op, nil)
		if err != nil {
			return "", err
		}
		if o != nil && o.IsMultiColumn() {
			return "", errorf(o.Path, "", "a compound key cannot be a function argument")
		}
		args[i] = s
	}
	return name + "(" + strings.Join(args, ", ") + ")", nil
}

func (q *QualifierTranslator) comparison(n *exp.Node) (string, error) {
	left, right := n.Operands[0], n.Operands[1]

	lhs, lop, err := q.term(left, nil)
	if err != nil {
		return "", err
	}
	if lop != nil && lop.IsMultiColumn() {
		return q.compound(n.Kind, lop, right)
	}

	if right.IsNull() {
		switch n.Kind {
		case exp.KindEqual:
			return lhs + " IS NULL", nil
		case exp.KindNotEqual:
			return lhs + " IS NOT NULL", nil
		}
	}

	rhs, rop, err := q.term(right, lop)
	if err != nil {
		return "", err
	}
	if rop != nil && rop.IsMultiColumn() {
		return "", errorf(rop.Path, "", "a compound key can only be compared with a value")
	}
	return lhs + " " + q.ctx.adapter.Operator(n.Kind) + " " + rhs, nil
}

// compound expands a comparison of a multi-column key into one comparison
// per column.
func (q *QualifierTranslator) compound(kind exp.Kind, op *Operand, right *exp.Node) (string, error) {
	if kind != exp.KindEqual && kind != exp.KindNotEqual {
		return "", errorf(op.Path, "", "a compound key supports only = and <> comparisons")
	}
	if right.Kind != exp.KindScalar {
		return "", errorf(op.Path, "", "a compound key can only be compared with a value")
	}
	switch right.Value.(type) {
	case nil, meta.Persistent, meta.ObjectID, map[string]any:
	default:
		return "", errorf(op.Path, "", "a compound key must be matched by an object, ObjectID or key map")
	}

	parts := make([]string, len(op.Columns))
	for i, col := range op.Columns {
		c := q.ctx.Column(col)
		switch {
		case right.Value == nil && kind == exp.KindEqual:
			parts[i] = c + " IS NULL"
		case right.Value == nil:
			parts[i] = c + " IS NOT NULL"
		default:
			v, err := keyValue(right.Value, col)
			if err != nil {
				return "", err
			}
			parts[i] = c + " " + q.ctx.adapter.Operator(kind) + " " + q.ctx.Bind(v)
		}
	}
	sep := " AND "
	if kind == exp.KindNotEqual {
		sep = " OR "
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (q *QualifierTranslator) in(n *exp.Node) (string, error) {
	not := n.Kind == exp.KindNotIn
	values := n.Operands[1:]
	if len(values) == 0 {
		if not {
			return "1 = 1", nil
		}
		return "1 = 0", nil
	}

	lhs, lop, err := q.term(n.Operands[0], nil)
	if err != nil {
		return "", err
	}
	if lop != nil && lop.IsMultiColumn() {
		alts := make([]string, len(values))
		for i, v := range values {
			s, err := q.compound(exp.KindEqual, lop, v)
			if err != nil {
				return "", err
			}
			alts[i] = s
		}
		out := "(" + strings.Join(alts, " OR ") + ")"
		if not {
			out = "NOT " + out
		}
		return out, nil
	}

	rendered := make([]string, len(values))
	for i, v := range values {
		s, _, err := q.term(v, lop)
		if err != nil {
			return "", err
		}
		rendered[i] = s
	}
	return lhs + " " + q.ctx.adapter.Operator(n.Kind) + " (" + strings.Join(rendered, ", ") + ")", nil
}

func (q *QualifierTranslator) between(n *exp.Node) (string, error) {
	var parts [3]string
	var lop *Operand
	for i, op := range n.Operands[:3] {
		s, o, err := q.term(op, lop)
		if err != nil {
			return "", err
		}
		if o != nil && o.IsMultiColumn() {
			return "", errorf(o.Path, "", "a compound key cannot be used in a range")
		}
		if i == 0 {
			lop = o
		}
		parts[i] = s
	}
	return parts[0] + " " + q.ctx.adapter.Operator(n.Kind) + " " + parts[1] + " AND " + parts[2], nil
}

// keyValue extracts the value matching col from an object, an ObjectID or a
// column map. Other values are used as they are.
func keyValue(v any, col ColumnRef) (any, error) {
	var id *meta.ObjectID
	switch x := v.(type) {
	case meta.Persistent:
		oid := x.ObjectID()
		id = &oid
	case meta.ObjectID:
		id = &x
	case map[string]any:
		kv, ok := x[col.Target]
		if !ok {
			return nil, fmt.Errorf("key map has no value for column %s", col.Target)
		}
		return kv, nil
	default:
		return v, nil
	}
	if id.IsTemporary() {
		return nil, fmt.Errorf("cannot match against unsaved object %s", id.Entity)
	}
	kv, ok := id.Value(col.Target)
	if !ok {
		return nil, fmt.Errorf("object %s has no key value for column %s", id, col.Target)
	}
	return kv, nil
}
