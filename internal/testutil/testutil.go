// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"database/sql"
	"testing"

	"suprisk/internal/store"

	_ "modernc.org/sqlite"
)

// SetupTestDB creates an in-memory SQLite database with the three input
// tables and the run log, matching the loader's schemas.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Every pooled connection to ":memory:" would get its own database;
	// pin the pool to one connection so all statements see the same tables.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	schemas := []string{
		`CREATE TABLE suppliers (
			supplier_id TEXT PRIMARY KEY,
			supplier_name TEXT,
			category TEXT,
			country TEXT,
			financial_risk_score INTEGER
		)`,
		`CREATE TABLE purchase_orders (
			po_id TEXT PRIMARY KEY,
			supplier_id TEXT,
			order_date TEXT,
			promised_date TEXT,
			quantity_ordered INTEGER
		)`,
		`CREATE TABLE deliveries (
			po_id TEXT PRIMARY KEY,
			delivery_date TEXT,
			quantity_delivered INTEGER,
			quality_issues INTEGER
		)`,
	}
	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			t.Fatalf("Failed to create table: %v\nSchema: %s", err, schema)
		}
	}
	if err := store.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

// InsertSupplier adds a supplier row.
func InsertSupplier(t *testing.T, db *sql.DB, id, name, category, country string, financialRisk int) {
	t.Helper()
	_, err := db.Exec("INSERT INTO suppliers VALUES (?,?,?,?,?)", id, name, category, country, financialRisk)
	if err != nil {
		t.Fatalf("Failed to insert supplier %s: %v", id, err)
	}
}

// InsertPO adds a purchase order row.
func InsertPO(t *testing.T, db *sql.DB, poID, supplierID, orderDate, promisedDate string, qty int) {
	t.Helper()
	_, err := db.Exec("INSERT INTO purchase_orders VALUES (?,?,?,?,?)", poID, supplierID, orderDate, promisedDate, qty)
	if err != nil {
		t.Fatalf("Failed to insert PO %s: %v", poID, err)
	}
}

// InsertDelivery adds a delivery row.
func InsertDelivery(t *testing.T, db *sql.DB, poID, deliveryDate string, qtyDelivered, qualityIssues int) {
	t.Helper()
	_, err := db.Exec("INSERT INTO deliveries VALUES (?,?,?,?)", poID, deliveryDate, qtyDelivered, qualityIssues)
	if err != nil {
		t.Fatalf("Failed to insert delivery %s: %v", poID, err)
	}
}
