// Package load materializes the generated CSV files into the warehouse's
// three input tables. Reloading drops and recreates the tables so a rerun
// never duplicates rows. Input validation beyond schema typing is not this
// engine's job, but the loader does report referential gaps (orders without
// deliveries and vice versa) so data-quality regressions are visible.
package load

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// Report summarizes a completed load.
type Report struct {
	Suppliers      int `json:"suppliers"`
	PurchaseOrders int `json:"purchase_orders"`
	Deliveries     int `json:"deliveries"`

	// Referential gaps. Both are tolerated by the KPI stage (inner-join
	// semantics) but worth surfacing.
	POsWithoutDeliveries int `json:"pos_without_deliveries"`
	DeliveriesWithoutPOs int `json:"deliveries_without_pos"`
}

const schemaSuppliers = `CREATE TABLE suppliers (
	supplier_id TEXT PRIMARY KEY,
	supplier_name TEXT,
	category TEXT,
	country TEXT,
	financial_risk_score INTEGER
)`

const schemaPurchaseOrders = `CREATE TABLE purchase_orders (
	po_id TEXT PRIMARY KEY,
	supplier_id TEXT,
	order_date TEXT,
	promised_date TEXT,
	quantity_ordered INTEGER
)`

const schemaDeliveries = `CREATE TABLE deliveries (
	po_id TEXT PRIMARY KEY,
	delivery_date TEXT,
	quantity_delivered INTEGER,
	quality_issues INTEGER
)`

// Run loads the three CSV files from dataDir into db. It fails fast if any
// input file is missing and leaves the previous tables intact in that case.
func Run(db *sql.DB, dataDir string) (*Report, error) {
	suppliersCSV := filepath.Join(dataDir, "suppliers.csv")
	posCSV := filepath.Join(dataDir, "purchase_orders.csv")
	deliveriesCSV := filepath.Join(dataDir, "deliveries.csv")

	for _, p := range []string{suppliersCSV, posCSV, deliveriesCSV} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("load: missing input file %s: %w", p, err)
		}
	}

	supRows, err := readCSV(suppliersCSV, 5)
	if err != nil {
		return nil, err
	}
	poRows, err := readCSV(posCSV, 5)
	if err != nil {
		return nil, err
	}
	delRows, err := readCSV(deliveriesCSV, 4)
	if err != nil {
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("load: begin: %w", err)
	}
	defer tx.Rollback()

	for table, ddl := range map[string]string{
		"suppliers":       schemaSuppliers,
		"purchase_orders": schemaPurchaseOrders,
		"deliveries":      schemaDeliveries,
	} {
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return nil, fmt.Errorf("load: drop %s: %w", table, err)
		}
		if _, err := tx.Exec(ddl); err != nil {
			return nil, fmt.Errorf("load: create %s: %w", table, err)
		}
	}

	if err := insertRows(tx, "suppliers", "INSERT INTO suppliers VALUES (?,?,?,?,?)", supRows, []int{4}); err != nil {
		return nil, err
	}
	if err := insertRows(tx, "purchase_orders", "INSERT INTO purchase_orders VALUES (?,?,?,?,?)", poRows, []int{4}); err != nil {
		return nil, err
	}
	if err := insertRows(tx, "deliveries", "INSERT INTO deliveries VALUES (?,?,?,?)", delRows, []int{2, 3}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("load: commit: %w", err)
	}

	rep := &Report{
		Suppliers:      len(supRows),
		PurchaseOrders: len(poRows),
		Deliveries:     len(delRows),
	}

	// Sanity checks: every PO should have exactly one delivery in well-formed
	// input. Gaps are reported, not fatal.
	err = db.QueryRow(`SELECT COUNT(*) FROM purchase_orders po
		LEFT JOIN deliveries d ON po.po_id = d.po_id
		WHERE d.po_id IS NULL`).Scan(&rep.POsWithoutDeliveries)
	if err != nil {
		return nil, fmt.Errorf("load: integrity check: %w", err)
	}
	err = db.QueryRow(`SELECT COUNT(*) FROM deliveries d
		LEFT JOIN purchase_orders po ON d.po_id = po.po_id
		WHERE po.po_id IS NULL`).Scan(&rep.DeliveriesWithoutPOs)
	if err != nil {
		return nil, fmt.Errorf("load: integrity check: %w", err)
	}

	log.Printf("load: suppliers=%d purchase_orders=%d deliveries=%d pos_without_deliveries=%d deliveries_without_pos=%d",
		rep.Suppliers, rep.PurchaseOrders, rep.Deliveries, rep.POsWithoutDeliveries, rep.DeliveriesWithoutPOs)

	return rep, nil
}

// readCSV reads a headered CSV and returns its data rows.
func readCSV(path string, wantCols int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = wantCols
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("load: read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("load: %s is empty", path)
	}
	return all[1:], nil
}

// insertRows inserts CSV rows with a prepared statement, converting the
// columns listed in intCols to integers.
func insertRows(tx *sql.Tx, table, query string, rows [][]string, intCols []int) error {
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("load: prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	isInt := map[int]bool{}
	for _, c := range intCols {
		isInt[c] = true
	}

	for _, row := range rows {
		args := make([]interface{}, len(row))
		for i, v := range row {
			if isInt[i] {
				n, err := strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("load: %s: bad integer %q: %w", table, v, err)
				}
				args[i] = n
			} else {
				args[i] = v
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("load: insert into %s: %w", table, err)
		}
	}
	return nil
}
