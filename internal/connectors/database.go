package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/credentials"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// DatabaseConnector reads product rows from a relational source. Tables play
// the role of files: List enumerates them and Fetch serializes rows to JSON.
type DatabaseConnector struct {
	creds *credentials.DatabaseCredentials
	opts  Options

	mu     sync.Mutex
	closed bool
	db     *sqlx.DB
}

func NewDatabaseConnector(creds *credentials.DatabaseCredentials, opts Options) *DatabaseConnector {
	return &DatabaseConnector{creds: creds, opts: opts}
}

func (c *DatabaseConnector) Kind() credentials.Kind { return credentials.KindDatabase }

func (c *DatabaseConnector) driverAndDSN() (string, string, error) {
	switch c.creds.Driver {
	case "postgres", "postgresql":
		u := url.URL{
			Scheme: "postgres",
			Host:   net.JoinHostPort(c.creds.Host, strconv.Itoa(c.creds.Port)),
			Path:   "/" + c.creds.Database,
		}
		if c.creds.Username != "" {
			u.User = url.UserPassword(c.creds.Username, c.creds.Password)
		}
		q := u.Query()
		q.Set("sslmode", c.creds.SSLMode)
		if c.opts.ConnectTimeout > 0 {
			q.Set("connect_timeout", strconv.Itoa(int(c.opts.ConnectTimeout/time.Second)))
		}
		u.RawQuery = q.Encode()
		return "postgres", u.String(), nil
	case "sqlite", "sqlite3":
		return "sqlite3", c.creds.Database, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", c.creds.Driver)
	}
}

func (c *DatabaseConnector) isPostgres() bool {
	return c.creds.Driver == "postgres" || c.creds.Driver == "postgresql"
}

func (c *DatabaseConnector) Connect(ctx context.Context) error {
	driver, dsn, err := c.driverAndDSN()
	if err != nil {
		return newError(constants.ErrCodeCredentialsInvalid, "invalid database credentials", err)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return newError(constants.ErrCodeTransportError, "failed to connect to database", err)
	}
	db.SetMaxOpenConns(2)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		db.Close()
		return newError(constants.ErrCodeTimeout, "connection closed during connect", context.Canceled)
	}
	c.db = db
	return nil
}

func (c *DatabaseConnector) Probe(ctx context.Context) (map[string]any, error) {
	if c.db == nil {
		return nil, ErrNotConnected
	}

	query := "SELECT CURRENT_TIMESTAMP"
	if c.isPostgres() {
		query = "SELECT NOW()"
	}

	var now any
	if err := c.db.QueryRowxContext(ctx, query).Scan(&now); err != nil {
		return nil, newError(constants.ErrCodeTransportError, "probe query failed", err)
	}
	if b, ok := now.([]byte); ok {
		now = string(b)
	}
	return map[string]any{"driver": c.creds.Driver, "serverTime": fmt.Sprint(now)}, nil
}

func (c *DatabaseConnector) tables(ctx context.Context) ([]string, error) {
	query := "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	if c.isPostgres() {
		query = "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name"
	}

	var names []string
	if err := c.db.SelectContext(ctx, &names, query); err != nil {
		return nil, newError(constants.ErrCodeTransportError, "failed to list tables", err)
	}
	return names, nil
}

// List ignores the directory argument and returns every table
func (c *DatabaseConnector) List(ctx context.Context, _ string) ([]Entry, error) {
	if c.db == nil {
		return nil, ErrNotConnected
	}

	names, err := c.tables(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(names))
	for _, n := range names {
		entries = append(entries, Entry{Name: n, Path: n, IsFile: true})
	}
	return entries, nil
}

func (c *DatabaseConnector) Stat(ctx context.Context, p string) (*Entry, error) {
	if c.db == nil {
		return nil, ErrNotConnected
	}
	if p == "" || isSelect(p) {
		return &Entry{Name: "query", Path: p, IsFile: true}, nil
	}

	names, err := c.tables(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if strings.EqualFold(n, p) {
			return &Entry{Name: n, Path: n, IsFile: true}, nil
		}
	}
	return nil, newError(constants.ErrCodePathNotFound, "table not found: "+p, ErrNotFound)
}

// Fetch runs p when it is a SELECT statement, otherwise reads the rows of the
// table named p. An empty p falls back to the configured query, then table.
// With MaxRecords set, table reads are limited in SQL and query reads stop
// after that many rows.
func (c *DatabaseConnector) Fetch(ctx context.Context, p string) (*Payload, error) {
	if c.db == nil {
		return nil, ErrNotConnected
	}

	query, name, err := c.buildQuery(p)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, newError(constants.ErrCodeTransportError, "query failed", err)
	}
	defer rows.Close()

	records := make([]map[string]any, 0)
	for rows.Next() {
		if c.opts.MaxRecords > 0 && len(records) >= c.opts.MaxRecords {
			break
		}
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, newError(constants.ErrCodeParseError, "failed to scan row", err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		records = append(records, row)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(constants.ErrCodeTransportError, "row iteration failed", err)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, newError(constants.ErrCodeParseError, "failed to encode rows", err)
	}
	return &Payload{
		Name:   name + ".json",
		Format: "json",
		Size:   int64(len(data)),
		Body:   io.NopCloser(bytes.NewReader(data)),
	}, nil
}

func (c *DatabaseConnector) buildQuery(p string) (string, string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		if c.creds.Query != "" {
			return c.creds.Query, "query", nil
		}
		p = c.creds.Table
	}
	if p == "" {
		return "", "", newError(constants.ErrCodeConfigMalformed, "no table or query configured", nil)
	}
	if isSelect(p) {
		return p, "query", nil
	}
	if !identifierPattern.MatchString(p) {
		return "", "", newError(constants.ErrCodeConfigMalformed, "invalid table name: "+p, nil)
	}

	parts := strings.Split(p, ".")
	name := parts[len(parts)-1]
	for i, part := range parts {
		parts[i] = `"` + part + `"`
	}
	query := "SELECT * FROM " + strings.Join(parts, ".")
	if c.opts.MaxRecords > 0 {
		query += " LIMIT " + strconv.Itoa(c.opts.MaxRecords)
	}
	return query, name, nil
}

func isSelect(p string) bool {
	lower := strings.ToLower(strings.TrimSpace(p))
	return strings.HasPrefix(lower, "select ") || strings.HasPrefix(lower, "with ")
}

func (c *DatabaseConnector) Delete(ctx context.Context, p string) error {
	return ErrUnsupported
}

func (c *DatabaseConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true

	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
