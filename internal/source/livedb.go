package source

// livedb.go imports one table from a live MySQL or PostgreSQL database.
// A fresh connection is opened and torn down per request; credentials are
// used once and never cached. Driver errors never reach the caller raw:
// they are pattern-matched into user-safe categories first.

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"

	"github.com/gridport/gridport/internal/normalize"
)

const (
	// MaxLiveRows caps a live-table import.
	MaxLiveRows = 5000

	connectTimeout = 10 * time.Second
	queryTimeout   = 30 * time.Second
)

// identRe matches a safe SQL identifier. Table names are interpolated into
// the query (placeholders cannot hold identifiers), so anything else is
// rejected outright.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// LiveDB imports tables from live relational databases.
type LiveDB struct{}

// NewLiveDB creates the adapter.
func NewLiveDB() *LiveDB {
	return &LiveDB{}
}

// FetchTable connects, reads up to MaxLiveRows rows of the table, and
// normalizes them with the column names as headers.
func (l *LiveDB) FetchTable(ctx context.Context, desc DatabaseTable) (NamedTable, error) {
	if desc.Host == "" || desc.Database == "" || desc.Table == "" {
		return NamedTable{}, fmt.Errorf("database source requires host, database and table")
	}
	if !identRe.MatchString(desc.Table) {
		return NamedTable{}, fmt.Errorf("invalid table name %q", desc.Table)
	}

	var (
		cols  []normalize.Column
		items []map[string]any
		err   error
	)

	switch desc.Dialect {
	case "mysql":
		cols, items, err = l.fetchMySQL(ctx, desc)
	case "postgres", "postgresql":
		cols, items, err = l.fetchPostgres(ctx, desc)
	default:
		return NamedTable{}, fmt.Errorf("unsupported dialect %q", desc.Dialect)
	}
	if err != nil {
		return NamedTable{}, sanitizeDBError(err)
	}

	return NamedTable{
		Name:  desc.Table,
		Table: normalize.Build(cols, items, normalize.ValueExtractor),
	}, nil
}

// fetchMySQL reads the table over database/sql with the mysql driver.
func (l *LiveDB) fetchMySQL(ctx context.Context, desc DatabaseTable) ([]normalize.Column, []map[string]any, error) {
	cfg := mysql.NewConfig()
	cfg.User = desc.User
	cfg.Passwd = desc.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", desc.Host, desc.Port)
	cfg.DBName = desc.Database
	cfg.Timeout = connectTimeout
	cfg.ReadTimeout = queryTimeout

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT * FROM `%s` LIMIT %d", desc.Table, MaxLiveRows)
	rows, err := db.QueryContext(queryCtx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	cols := columnsFromNames(names)
	var items []map[string]any
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}

		item := make(map[string]any, len(names))
		for i, name := range names {
			item[name] = plainValue(values[i])
		}
		items = append(items, item)
	}
	return cols, items, rows.Err()
}

// fetchPostgres reads the table over a single pgx connection.
func (l *LiveDB) fetchPostgres(ctx context.Context, desc DatabaseTable) ([]normalize.Column, []map[string]any, error) {
	connURL := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(desc.User, desc.Password),
		Host:     fmt.Sprintf("%s:%d", desc.Host, desc.Port),
		Path:     "/" + desc.Database,
		RawQuery: fmt.Sprintf("connect_timeout=%d", int(connectTimeout.Seconds())),
	}

	conn, err := pgx.Connect(ctx, connURL.String())
	if err != nil {
		return nil, nil, err
	}
	defer conn.Close(context.Background())

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT * FROM %q LIMIT %d`, desc.Table, MaxLiveRows)
	rows, err := conn.Query(queryCtx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var names []string
	for _, fd := range rows.FieldDescriptions() {
		names = append(names, fd.Name)
	}

	cols := columnsFromNames(names)
	var items []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, err
		}

		item := make(map[string]any, len(names))
		for i, name := range names {
			if i < len(values) {
				item[name] = plainValue(values[i])
			}
		}
		items = append(items, item)
	}
	return cols, items, rows.Err()
}

// columnsFromNames builds column descriptors from driver column names.
// Relational columns have no separate display name.
func columnsFromNames(names []string) []normalize.Column {
	cols := make([]normalize.Column, len(names))
	for i, n := range names {
		cols[i] = normalize.Column{Name: n}
	}
	return cols
}

// plainValue reduces driver values to primitives the normalizer can render:
// byte slices become strings, timestamps become ISO strings, everything
// else passes through.
func plainValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return v
	}
}
