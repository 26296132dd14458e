package client

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/pool"
	"github.com/satishbabariya/objgraph/query/cache"
	"github.com/satishbabariya/objgraph/query/ddl"
	"github.com/satishbabariya/objgraph/query/dialect"
)

type opKind int

const (
	opInsert opKind = iota
	opUpdate
	opDelete
)

func (k opKind) operation() Operation {
	switch k {
	case opInsert:
		return OpInsert
	case opUpdate:
		return OpUpdate
	}
	return OpDelete
}

type operation struct {
	kind   opKind
	obj    meta.Persistent
	entity *meta.ObjEntity
	// id is the key written or matched, set once the statement ran.
	id meta.ObjectID
	// skip marks a deleted object that was never saved.
	skip bool
}

type changeTracker interface {
	Changes() map[string]any
}

// Commit writes new, modified and deleted objects in one transaction, or in
// a savepoint of the context's transaction. Inserts run in foreign key
// order so that keys generated for earlier objects fill the foreign keys of
// later ones; deletes run in reverse order. On success new and modified
// objects become committed and deleted ones transient, and the cache groups
// of every written entity and its ancestors are invalidated. On failure no
// object state changes.
func (c *Client) Commit(ctx context.Context, objects ...meta.Persistent) error {
	ops, pending, err := c.plan(objects)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	err = c.Transaction(ctx, func(ctx context.Context) error {
		conn, release, err := c.acquire(ctx)
		if err != nil {
			return err
		}
		defer release()

		for _, op := range ops {
			if op.skip {
				continue
			}
			err := c.runMutation(ctx, op.entity.Name, op.kind.operation(), op.obj, func() error {
				switch op.kind {
				case opInsert:
					return c.insert(ctx, conn, op, pending)
				case opUpdate:
					return c.update(ctx, conn, op, pending)
				}
				return c.delete(ctx, conn, op)
			})
			if err != nil {
				return fmt.Errorf("%s %s: %w", op.kind.operation(), op.entity.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	groups := make(map[string]bool)
	for _, op := range ops {
		switch op.kind {
		case opInsert:
			op.obj.SetObjectID(op.id)
			op.obj.SetPersistenceState(meta.Committed)
		case opUpdate:
			op.obj.SetPersistenceState(meta.Committed)
		case opDelete:
			op.obj.SetPersistenceState(meta.Transient)
		}
		for e := op.entity; e != nil; e = e.SuperEntity() {
			groups[cache.EntityGroup(e.Name)] = true
		}
	}
	if c.cache != nil {
		for g := range groups {
			c.cache.InvalidateGroup(g)
		}
	}
	c.log.Debug("commit done", "objects", len(ops))
	return nil
}

// plan orders the operations: inserts parents first, then updates, then
// deletes children first.
func (c *Client) plan(objects []meta.Persistent) ([]*operation, map[meta.Persistent]*operation, error) {
	var inserts, updates, deletes []*operation
	index := make(map[meta.Persistent]*operation, len(objects))

	for _, obj := range objects {
		if isNil(obj) {
			continue
		}
		if !reflect.TypeOf(obj).Comparable() {
			return nil, nil, fmt.Errorf("%w: %T is not comparable, commit a pointer", ErrUnmapped, obj)
		}
		if _, dup := index[obj]; dup {
			continue
		}

		var kind opKind
		switch obj.PersistenceState() {
		case meta.New:
			kind = opInsert
		case meta.Modified:
			kind = opUpdate
		case meta.Deleted:
			kind = opDelete
		default:
			continue
		}
		entity, err := c.entityOf(obj)
		if err != nil {
			return nil, nil, err
		}

		op := &operation{kind: kind, obj: obj, entity: entity}
		index[obj] = op
		switch kind {
		case opInsert:
			inserts = append(inserts, op)
		case opUpdate:
			updates = append(updates, op)
		case opDelete:
			op.skip = obj.ObjectID().IsTemporary()
			deletes = append(deletes, op)
		}
	}

	rank := func(op *operation) int { return c.rank[op.entity.DbEntity().Name] }
	sort.SliceStable(inserts, func(i, j int) bool { return rank(inserts[i]) < rank(inserts[j]) })
	sort.SliceStable(deletes, func(i, j int) bool { return rank(deletes[i]) > rank(deletes[j]) })

	ops := make([]*operation, 0, len(inserts)+len(updates)+len(deletes))
	ops = append(ops, inserts...)
	ops = append(ops, updates...)
	ops = append(ops, deletes...)
	return ops, index, nil
}

func (c *Client) insert(ctx context.Context, conn *pool.Conn, op *operation, pending map[meta.Persistent]*operation) error {
	entity := op.entity
	table := entity.DbEntity()

	var r row
	if err := c.collect(&r, op, pending, nil, true); err != nil {
		return err
	}
	if col := entity.DiscriminatorColumn(); col != "" {
		if entity.DiscriminatorValue == "" {
			return fmt.Errorf("%w: %s", ErrAbstractEntity, entity.Name)
		}
		r.set(col, entity.DiscriminatorValue)
	}

	id := op.obj.ObjectID()
	var generated []string
	for _, pk := range table.PrimaryKeys() {
		if v, ok := id.Value(pk.Name); ok {
			r.set(pk.Name, v)
			continue
		}
		if v, ok := r.get(pk.Name); ok && v != nil {
			continue
		}
		if pk.Generated {
			generated = append(generated, pk.Name)
			continue
		}
		return fmt.Errorf("%w: %s", ErrMissingKey, pk)
	}

	stmt := dialect.Insert(c.adapter, table, r.cols, r.vals, generated...)
	keys := make(map[string]any, len(generated))
	switch {
	case len(generated) == 0:
		if _, err := c.exec(ctx, conn, stmt.SQL, stmt.Args); err != nil {
			return err
		}
	case c.adapter.KeyStrategy() == dialect.KeyReturning:
		dest := make([]any, len(generated))
		ptrs := make([]any, len(generated))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		err := c.executeWithMiddleware(ctx, stmt.SQL, stmt.Args, func() error {
			return conn.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(ptrs...)
		})
		if err != nil {
			return err
		}
		for i, name := range generated {
			keys[name] = dest[i]
		}
	case c.adapter.KeyStrategy() == dialect.KeyLastInsertID && len(generated) == 1:
		res, err := c.exec(ctx, conn, stmt.SQL, stmt.Args)
		if err != nil {
			return err
		}
		n, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrKeyGeneration, err)
		}
		keys[generated[0]] = n
	default:
		return fmt.Errorf("%w: %s on %s", ErrKeyGeneration, table.Name, c.adapter.Name())
	}

	op.id = meta.ObjectID{Entity: entity.Name}
	for _, pk := range table.PrimaryKeys() {
		v, ok := keys[pk.Name]
		if !ok {
			v, _ = r.get(pk.Name)
		}
		if cv, err := c.adapter.CoerceValue(pk, v); err == nil {
			v = cv
		}
		op.id.Columns = append(op.id.Columns, pk.Name)
		op.id.Values = append(op.id.Values, v)
	}
	return nil
}

func (c *Client) update(ctx context.Context, conn *pool.Conn, op *operation, pending map[meta.Persistent]*operation) error {
	table := op.entity.DbEntity()
	op.id = op.obj.ObjectID()
	keyCols, keyVals, err := keyOf(table, op.id)
	if err != nil {
		return err
	}

	var only map[string]bool
	if t, ok := op.obj.(changeTracker); ok {
		only = make(map[string]bool)
		for name := range t.Changes() {
			only[name] = true
		}
	}
	var r row
	if err := c.collect(&r, op, pending, only, false); err != nil {
		return err
	}
	if len(r.cols) == 0 {
		return nil
	}

	stmt := dialect.Update(c.adapter, table, r.cols, r.vals, keyCols, keyVals)
	res, err := c.exec(ctx, conn, stmt.SQL, stmt.Args)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		c.log.Warn("update matched no rows", "object", op.id.String())
	}
	return nil
}

func (c *Client) delete(ctx context.Context, conn *pool.Conn, op *operation) error {
	table := op.entity.DbEntity()
	op.id = op.obj.ObjectID()
	keyCols, keyVals, err := keyOf(table, op.id)
	if err != nil {
		return err
	}
	stmt := dialect.Delete(c.adapter, table, keyCols, keyVals)
	_, err = c.exec(ctx, conn, stmt.SQL, stmt.Args)
	return err
}

// collect gathers the column values of an object: plain attributes and the
// foreign keys of to-one relationships. only limits it to named properties.
func (c *Client) collect(r *row, op *operation, pending map[meta.Persistent]*operation, only map[string]bool, insert bool) error {
	entity := op.entity
	for _, attr := range entity.AllAttributes() {
		if attr.IsFlattened() || (only != nil && !only[attr.Name]) {
			continue
		}
		col := attr.DbAttribute()
		if col == nil || (col.PrimaryKey && !insert) {
			continue
		}
		v, err := entity.Accessor(attr.Name).Get(op.obj)
		if err != nil {
			return err
		}
		if isNil(v) {
			if col.PrimaryKey {
				continue
			}
			v = nil
		}
		r.set(col.Name, v)
	}

	for _, rel := range entity.AllRelationships() {
		if rel.IsFlattened() || (only != nil && !only[rel.Name]) {
			continue
		}
		dbRel := rel.DbRelationships()[0]
		if !ddl.OwnsForeignKey(dbRel) {
			continue
		}
		v, err := entity.Accessor(rel.Name).Get(op.obj)
		if err != nil {
			return err
		}
		if isNil(v) {
			if !insert {
				for _, j := range dbRel.Joins {
					r.set(j.Source, nil)
				}
			}
			continue
		}
		target, ok := v.(meta.Persistent)
		if !ok {
			return fmt.Errorf("%w: %s.%s holds %T", ErrUnmapped, entity.Name, rel.Name, v)
		}
		tid, err := targetID(target, pending)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", entity.Name, rel.Name, err)
		}
		for _, j := range dbRel.Joins {
			tv, ok := tid.Value(j.Target)
			if !ok {
				return fmt.Errorf("%w: %s has no %s", ErrMissingKey, tid, j.Target)
			}
			r.set(j.Source, tv)
		}
	}
	return nil
}

// targetID is the key of a relationship target, taking keys generated
// earlier in the same commit into account.
func targetID(target meta.Persistent, pending map[meta.Persistent]*operation) (meta.ObjectID, error) {
	if reflect.TypeOf(target).Comparable() {
		if op, ok := pending[target]; ok && op.kind == opInsert {
			if op.id.IsTemporary() {
				return op.id, fmt.Errorf("%w: %s is inserted later in the same commit", ErrUnsavedTarget, op.entity.Name)
			}
			return op.id, nil
		}
	}
	id := target.ObjectID()
	if id.IsTemporary() {
		return id, fmt.Errorf("%w: %s", ErrUnsavedTarget, id.Entity)
	}
	return id, nil
}

func keyOf(table *meta.DbEntity, id meta.ObjectID) ([]string, []any, error) {
	pks := table.PrimaryKeys()
	cols := make([]string, len(pks))
	vals := make([]any, len(pks))
	for i, pk := range pks {
		v, ok := id.Value(pk.Name)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s of %s", ErrMissingKey, pk, id)
		}
		cols[i], vals[i] = pk.Name, v
	}
	return cols, vals, nil
}

// row is an ordered set of column values.
type row struct {
	cols []string
	vals []any
}

func (r *row) set(col string, v any) {
	for i, c := range r.cols {
		if c == col {
			r.vals[i] = v
			return
		}
	}
	r.cols = append(r.cols, col)
	r.vals = append(r.vals, v)
}

func (r *row) get(col string) (any, bool) {
	for i, c := range r.cols {
		if c == col {
			return r.vals[i], true
		}
	}
	return nil, false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
