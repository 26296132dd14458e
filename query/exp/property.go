package exp

import "strings"

// Property is a typed handle on an object path used to build qualifiers and
// orderings without string concatenation.
type Property[V any] struct {
	path string
}

// Prop creates a property for an object path.
func Prop[V any](path string) Property[V] {
	return Property[V]{path: path}
}

// Name returns the path.
func (p Property[V]) Name() string { return p.path }

// Path returns the path node.
func (p Property[V]) Path() *Node { return Path(p.path) }

// Outer returns the same property with its last relationship hop joined as
// an outer join. Only meaningful when the property is a relationship.
func (p Property[V]) Outer() Property[V] {
	if strings.HasSuffix(p.path, "+") {
		return p
	}
	return Property[V]{path: p.path + "+"}
}

// Eq creates an equality condition
func (p Property[V]) Eq(v V) *Node { return Eq(p.Path(), Val(v)) }

// Ne creates a not-equal condition
func (p Property[V]) Ne(v V) *Node { return Binary(KindNotEqual, p.Path(), Val(v)) }

// Lt creates a less-than condition
func (p Property[V]) Lt(v V) *Node { return Binary(KindLess, p.Path(), Val(v)) }

// Le creates a less-than-or-equal condition
func (p Property[V]) Le(v V) *Node { return Binary(KindLessOrEqual, p.Path(), Val(v)) }

// Gt creates a greater-than condition
func (p Property[V]) Gt(v V) *Node { return Binary(KindGreater, p.Path(), Val(v)) }

// Ge creates a greater-than-or-equal condition
func (p Property[V]) Ge(v V) *Node { return Binary(KindGreaterOrEqual, p.Path(), Val(v)) }

// IsNull creates an IS NULL condition
func (p Property[V]) IsNull() *Node { return Eq(p.Path(), Val(nil)) }

// IsNotNull creates an IS NOT NULL condition
func (p Property[V]) IsNotNull() *Node { return Binary(KindNotEqual, p.Path(), Val(nil)) }

// In creates an IN condition
func (p Property[V]) In(values ...V) *Node {
	nodes := make([]*Node, len(values))
	for i, v := range values {
		nodes[i] = Val(v)
	}
	return In(p.Path(), nodes...)
}

// NotIn creates a NOT IN condition
func (p Property[V]) NotIn(values ...V) *Node {
	n := p.In(values...)
	n.Kind = KindNotIn
	return n
}

// Between creates a BETWEEN condition
func (p Property[V]) Between(lower, upper V) *Node {
	return Between(p.Path(), Val(lower), Val(upper))
}

// Like creates a LIKE condition
func (p Property[V]) Like(pattern string) *Node { return Binary(KindLike, p.Path(), Val(pattern)) }

// LikeIgnoreCase creates a case-insensitive LIKE condition
func (p Property[V]) LikeIgnoreCase(pattern string) *Node {
	return Binary(KindLikeIgnoreCase, p.Path(), Val(pattern))
}

// Contains matches values containing the substring
func (p Property[V]) Contains(s string) *Node { return p.Like("%" + s + "%") }

// StartsWith matches values beginning with the prefix
func (p Property[V]) StartsWith(s string) *Node { return p.Like(s + "%") }

// EqParam compares against a named parameter
func (p Property[V]) EqParam(name string) *Node { return Eq(p.Path(), Param(name)) }

// Asc orders by the property ascending.
func (p Property[V]) Asc() Ordering { return Ordering{Path: p.path} }

// Desc orders by the property descending.
func (p Property[V]) Desc() Ordering { return Ordering{Path: p.path, Descending: true} }

// Ordering sorts results by an object path.
type Ordering struct {
	Path       string
	Descending bool
	IgnoreCase bool
}

// String renders "path asc|desc".
func (o Ordering) String() string {
	dir := "asc"
	if o.Descending {
		dir = "desc"
	}
	if o.IgnoreCase {
		dir += " ignore case"
	}
	return o.Path + " " + dir
}
