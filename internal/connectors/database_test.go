package connectors

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"mdm-platform/feedhub/internal/credentials"
)

func setupFeedDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "feed.db")

	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	defer db.Close()

	db.MustExec(`CREATE TABLE supplier_products (sku TEXT, name TEXT, cost REAL)`)
	db.MustExec(`INSERT INTO supplier_products VALUES ('D1', 'Drill', 49.5), ('D2', 'Driver', 19.0)`)
	return dbPath
}

func TestDatabaseConnector_ProbeListFetch(t *testing.T) {
	creds := &credentials.DatabaseCredentials{Driver: "sqlite3", Database: setupFeedDB(t)}
	conn := NewDatabaseConnector(creds, DefaultOptions())

	res := TestConnection(context.Background(), conn, 5*time.Second)
	if !res.Success {
		t.Fatalf("Expected probe success, got %+v", res)
	}

	conn = NewDatabaseConnector(creds, DefaultOptions())
	err := WithSession(context.Background(), conn, time.Second, func(ctx context.Context, c Connector) error {
		entries, err := c.List(ctx, "/")
		if err != nil {
			return err
		}
		if len(entries) != 1 || entries[0].Name != "supplier_products" {
			t.Errorf("Expected one table, got %+v", entries)
		}

		payload, err := c.Fetch(ctx, "supplier_products")
		if err != nil {
			return err
		}
		records := decodeRecords(t, payload)
		if len(records) != 2 || records[0]["sku"] != "D1" {
			t.Errorf("Expected D1 first of 2 rows, got %v", records)
		}

		payload, err = c.Fetch(ctx, "SELECT sku FROM supplier_products WHERE cost > 20")
		if err != nil {
			return err
		}
		if got := decodeRecords(t, payload); len(got) != 1 {
			t.Errorf("Expected 1 row from query, got %d", len(got))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestDatabaseConnector_RejectsUnsafeTableName(t *testing.T) {
	conn := NewDatabaseConnector(&credentials.DatabaseCredentials{Driver: "sqlite3", Database: setupFeedDB(t)}, DefaultOptions())
	err := WithSession(context.Background(), conn, time.Second, func(ctx context.Context, c Connector) error {
		_, err := c.Fetch(ctx, "products; DROP TABLE x")
		return err
	})
	if CodeOf(err) != "CONFIG_MALFORMED" {
		t.Errorf("Expected CONFIG_MALFORMED, got %v", err)
	}

	if err := conn.Delete(context.Background(), "x"); err != ErrUnsupported {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}

func TestDatabaseConnector_MaxRecordsLimitsRows(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "big.db")
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	db.MustExec(`CREATE TABLE items (sku TEXT, name TEXT)`)
	tx := db.MustBegin()
	for i := 0; i < 2000; i++ {
		tx.MustExec(`INSERT INTO items VALUES (?, ?)`, fmt.Sprintf("S%d", i), "item")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to seed rows: %v", err)
	}
	db.Close()

	opts := DefaultOptions()
	opts.MaxRecords = 5
	conn := NewDatabaseConnector(&credentials.DatabaseCredentials{Driver: "sqlite3", Database: dbPath}, opts)
	err = WithSession(context.Background(), conn, time.Second, func(ctx context.Context, c Connector) error {
		payload, err := c.Fetch(ctx, "items")
		if err != nil {
			return err
		}
		if got := decodeRecords(t, payload); len(got) != 5 {
			t.Errorf("Expected 5 rows from table, got %d", len(got))
		}

		payload, err = c.Fetch(ctx, "SELECT sku FROM items")
		if err != nil {
			return err
		}
		if got := decodeRecords(t, payload); len(got) != 5 {
			t.Errorf("Expected 5 rows from query, got %d", len(got))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}
