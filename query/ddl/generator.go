// Package ddl generates schema statements for mapped tables in foreign key
// dependency order.
package ddl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/satishbabariya/objgraph/internal/debug"
	"github.com/satishbabariya/objgraph/meta"
	"github.com/satishbabariya/objgraph/query/dialect"
)

// Options selects which statements are generated.
type Options struct {
	DropTables        bool
	CreateTables      bool
	CreateForeignKeys bool
}

// DefaultOptions creates tables and foreign keys without dropping anything.
func DefaultOptions() Options {
	return Options{CreateTables: true, CreateForeignKeys: true}
}

// Execer runs a statement. *sql.DB, *sql.Conn, *sql.Tx and pool connections
// satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type foreignKeyless interface {
	SupportsForeignKeyConstraints() bool
}

// Generator renders schema statements for a set of tables.
type Generator struct {
	adapter dialect.Adapter
	tables  []*meta.DbEntity
	opts    Options
	log     *slog.Logger
}

// New creates a generator for tables.
func New(adapter dialect.Adapter, tables []*meta.DbEntity, opts Options) *Generator {
	return &Generator{adapter: adapter, tables: tables, opts: opts, log: debug.Component("ddl")}
}

// Statement is one generated statement.
type Statement struct {
	SQL string
	// Drop marks statements whose failure is tolerated, such as dropping a
	// table that does not exist yet.
	Drop bool
}

// Statements returns drops in reverse dependency order, then creates in
// dependency order, then foreign keys.
func (g *Generator) Statements() ([]Statement, error) {
	ordered := SortTables(g.tables)
	var out []Statement

	if g.opts.DropTables {
		for i := len(ordered) - 1; i >= 0; i-- {
			for _, s := range g.adapter.DropTable(ordered[i]) {
				out = append(out, Statement{SQL: s, Drop: true})
			}
		}
	}
	if g.opts.CreateTables {
		for _, t := range ordered {
			s, err := g.adapter.CreateTable(t)
			if err != nil {
				return nil, err
			}
			out = append(out, Statement{SQL: s})
		}
	}
	if g.opts.CreateForeignKeys && g.supportsForeignKeys() {
		for _, t := range ordered {
			for _, rel := range t.Relationships {
				if !OwnsForeignKey(rel) {
					continue
				}
				s, err := g.adapter.CreateForeignKey(rel)
				if err != nil {
					return nil, err
				}
				out = append(out, Statement{SQL: s})
			}
		}
	}
	return out, nil
}

func (g *Generator) supportsForeignKeys() bool {
	if f, ok := g.adapter.(foreignKeyless); ok {
		return f.SupportsForeignKeyConstraints()
	}
	return true
}

// Execute runs every statement in order. Failed drops are logged and
// skipped; other failures are collected and execution continues.
func (g *Generator) Execute(ctx context.Context, db Execer) error {
	stmts, err := g.Statements()
	if err != nil {
		return err
	}
	var errs []error
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s.SQL); err != nil {
			if s.Drop {
				g.log.Debug("drop failed", "sql", s.SQL, "error", err)
				continue
			}
			g.log.Error("statement failed", "sql", s.SQL, "error", err)
			errs = append(errs, fmt.Errorf("statement %d: %w", i+1, err))
			continue
		}
		g.log.Debug("executed", "sql", s.SQL)
	}
	return errors.Join(errs...)
}

// OwnsForeignKey reports whether rel is backed by a foreign key in its
// source table.
func OwnsForeignKey(rel *meta.DbRelationship) bool {
	return !rel.ToMany && !rel.ToDependentPK && rel.IsToPK() && rel.Target() != nil
}

// SortTables orders tables so that every table comes after the tables its
// foreign keys reference. Tables in a reference cycle keep name order at the
// end.
func SortTables(tables []*meta.DbEntity) []*meta.DbEntity {
	byName := make(map[string]*meta.DbEntity, len(tables))
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
		names = append(names, t.Name)
	}
	sort.Strings(names)

	pending := make(map[string]int, len(tables))
	dependents := make(map[string][]string)
	for _, name := range names {
		seen := map[string]bool{}
		for _, rel := range byName[name].Relationships {
			if !OwnsForeignKey(rel) {
				continue
			}
			target := rel.Target().Name
			if target == name || seen[target] || byName[target] == nil {
				continue
			}
			seen[target] = true
			pending[name]++
			dependents[target] = append(dependents[target], name)
		}
	}

	var ready []string
	for _, name := range names {
		if pending[name] == 0 {
			ready = append(ready, name)
		}
	}

	out := make([]*meta.DbEntity, 0, len(tables))
	done := make(map[string]bool, len(tables))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		out = append(out, byName[name])
		done[name] = true

		var next []string
		for _, d := range dependents[name] {
			pending[d]--
			if pending[d] == 0 {
				next = append(next, d)
			}
		}
		sort.Strings(next)
		ready = append(ready, next...)
	}

	for _, name := range names {
		if !done[name] {
			out = append(out, byName[name])
		}
	}
	return out
}
