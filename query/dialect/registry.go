package dialect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/objgraph/internal/debug"
)

// ByName returns an adapter for a configured name. Version-dependent
// capabilities assume a current server.
func ByName(name string) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return NewPostgres(nil), nil
	case "mysql":
		return NewMySQL(nil, false), nil
	case "mariadb":
		return NewMySQL(nil, true), nil
	case "sqlite", "sqlite3":
		return NewSQLite(nil), nil
	case "sqlserver", "mssql":
		return NewSQLServer(nil), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, name)
	}
}

var versionPattern = regexp.MustCompile(`\d+(\.\d+)+`)

// ParseVersion extracts the first dotted version number from a product
// banner such as "PostgreSQL 16.2 on x86_64-pc-linux-gnu".
func ParseVersion(banner string) *version.Version {
	m := versionPattern.FindString(banner)
	if m == "" {
		return nil
	}
	v, err := version.NewVersion(m)
	if err != nil {
		return nil
	}
	return v
}

// FromProduct picks an adapter from a server's product banner.
func FromProduct(banner string) (Adapter, error) {
	lower := strings.ToLower(banner)
	v := ParseVersion(banner)
	switch {
	case strings.Contains(lower, "postgresql"), strings.Contains(lower, "cockroachdb"):
		return NewPostgres(v), nil
	case strings.Contains(lower, "microsoft sql server"):
		// "Microsoft SQL Server 2019 (RTM) - 15.0.2000.5": skip the marketing year.
		if idx := strings.Index(banner, " - "); idx >= 0 {
			v = ParseVersion(banner[idx:])
		}
		return NewSQLServer(v), nil
	case strings.Contains(lower, "mariadb"):
		return NewMySQL(v, true), nil
	case strings.Contains(lower, "mysql"):
		return NewMySQL(v, false), nil
	}
	return nil, fmt.Errorf("%w: product %q", ErrUnknownAdapter, banner)
}

type probe struct {
	query   string
	product func(banner string) string
}

// probes run in order until one answers. sqlite_version() is first since
// the others would succeed on SQLite-compatible engines too.
var probes = []probe{
	{"SELECT sqlite_version()", func(b string) string { return "sqlite " + b }},
	{"SELECT @@VERSION", func(b string) string {
		// MySQL answers with a bare number like "8.0.36".
		lower := strings.ToLower(b)
		if strings.Contains(lower, "microsoft") || strings.Contains(lower, "mariadb") {
			return b
		}
		return "mysql " + b
	}},
	{"SELECT version()", func(b string) string { return b }},
}

// Detect asks a live connection which product it is.
func Detect(ctx context.Context, q Querier) (Adapter, error) {
	log := debug.Component("dialect")
	for _, p := range probes {
		var banner string
		if err := q.QueryRowContext(ctx, p.query).Scan(&banner); err != nil {
			log.Debug("probe failed", "query", p.query, "error", err)
			continue
		}
		product := p.product(banner)
		if strings.HasPrefix(product, "sqlite ") {
			log.Info("detected database", "adapter", "sqlite", "version", banner)
			return NewSQLite(ParseVersion(banner)), nil
		}
		a, err := FromProduct(product)
		if err != nil {
			return nil, err
		}
		log.Info("detected database", "adapter", a.Name(), "banner", banner)
		return a, nil
	}
	return nil, fmt.Errorf("%w: no version probe succeeded", ErrUnknownAdapter)
}
