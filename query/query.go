// Package query provides object queries and their translation into SQL for a
// given dialect.
package query

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/query/cache"
	"github.com/satishbabariya/objgraph/query/dialect"
	"github.com/satishbabariya/objgraph/query/exp"
	"github.com/satishbabariya/objgraph/query/translator"
)

// CacheStrategy controls whether results go through the query cache.
type CacheStrategy int

const (
	// NoCache always runs the query.
	NoCache CacheStrategy = iota
	// SharedCache serves results from the cache when present.
	SharedCache
	// SharedCacheRefresh runs the query and replaces the cached result.
	SharedCacheRefresh
)

// SelectQuery fetches objects of one entity, or computed columns over it.
type SelectQuery struct {
	entity      string
	qualifier   *exp.Node
	orderings   []exp.Ordering
	limit       int
	offset      int
	distinct    bool
	columns     []*exp.Node
	withEntity  bool
	params      map[string]any
	cache       CacheStrategy
	cacheGroups []string
	err         error
}

// NewSelect creates a query for entity.
func NewSelect(entity string) *SelectQuery {
	return &SelectQuery{entity: entity}
}

// Where adds a condition, combined with existing ones by AND.
func (q *SelectQuery) Where(node *exp.Node) *SelectQuery {
	q.qualifier = exp.And(q.qualifier, node)
	return q
}

// WhereString parses text as a condition and adds it with Where. Parse
// errors surface when the query is translated.
func (q *SelectQuery) WhereString(text string) *SelectQuery {
	node, err := exp.Parse(text)
	if err != nil {
		q.err = fmt.Errorf("invalid qualifier: %w", err)
		return q
	}
	return q.Where(node)
}

// OrderBy appends orderings.
func (q *SelectQuery) OrderBy(orderings ...exp.Ordering) *SelectQuery {
	q.orderings = append(q.orderings, orderings...)
	return q
}

// Limit caps the number of results. Zero means no limit.
func (q *SelectQuery) Limit(n int) *SelectQuery {
	q.limit = n
	return q
}

// Offset skips the first n results.
func (q *SelectQuery) Offset(n int) *SelectQuery {
	q.offset = n
	return q
}

// Distinct removes duplicate rows.
func (q *SelectQuery) Distinct() *SelectQuery {
	q.distinct = true
	return q
}

// Columns selects expressions instead of objects.
func (q *SelectQuery) Columns(nodes ...*exp.Node) *SelectQuery {
	q.columns = append(q.columns, nodes...)
	return q
}

// WithEntity returns each object ahead of the selected columns.
func (q *SelectQuery) WithEntity() *SelectQuery {
	q.withEntity = true
	return q
}

// Param binds a named parameter of the qualifier.
func (q *SelectQuery) Param(name string, value any) *SelectQuery {
	if q.params == nil {
		q.params = make(map[string]any)
	}
	q.params[name] = value
	return q
}

// Cache sets the cache strategy and the extra groups the cached result
// belongs to. The root entity's group is always included.
func (q *SelectQuery) Cache(strategy CacheStrategy, groups ...string) *SelectQuery {
	q.cache = strategy
	q.cacheGroups = append(q.cacheGroups, groups...)
	return q
}

func (q *SelectQuery) Entity() string               { return q.entity }
func (q *SelectQuery) Qualifier() *exp.Node         { return q.qualifier }
func (q *SelectQuery) CacheStrategy() CacheStrategy { return q.cache }

// CacheGroups returns the groups a cached result is filed under.
func (q *SelectQuery) CacheGroups() []string {
	return append([]string{cache.EntityGroup(q.entity)}, q.cacheGroups...)
}

// Translate resolves the entity and renders the query for adapter.
func (q *SelectQuery) Translate(r *meta.EntityResolver, a dialect.Adapter) (*translator.Statement, *meta.ObjEntity, error) {
	if q.err != nil {
		return nil, nil, q.err
	}
	entity, err := r.LookupObjEntity(q.entity)
	if err != nil {
		return nil, nil, err
	}

	qualifier := q.qualifier
	if qualifier != nil {
		if qualifier, err = qualifier.Bind(q.params); err != nil {
			return nil, nil, err
		}
	}
	columns := make([]*exp.Node, len(q.columns))
	for i, c := range q.columns {
		if columns[i], err = c.Bind(q.params); err != nil {
			return nil, nil, err
		}
	}

	stmt, err := translator.Translate(a, translator.Select{
		Root:       entity,
		Qualifier:  qualifier,
		Orderings:  q.orderings,
		Distinct:   q.distinct,
		Limit:      q.limit,
		Offset:     q.offset,
		Columns:    columns,
		WithEntity: q.withEntity,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("translating query on %s: %w", q.entity, err)
	}
	return stmt, entity, nil
}

// ParseOrdering reads "path [asc|desc] [ignore case]".
func ParseOrdering(text string) (exp.Ordering, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return exp.Ordering{}, fmt.Errorf("empty ordering")
	}
	o := exp.Ordering{Path: fields[0]}
	rest := strings.ToLower(strings.Join(fields[1:], " "))
	if strings.HasSuffix(rest, "ignore case") {
		o.IgnoreCase = true
		rest = strings.TrimSpace(strings.TrimSuffix(rest, "ignore case"))
	}
	switch rest {
	case "", "asc":
	case "desc":
		o.Descending = true
	default:
		return exp.Ordering{}, fmt.Errorf("invalid ordering %q", text)
	}
	return o, nil
}
