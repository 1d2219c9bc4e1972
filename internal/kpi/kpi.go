// Package kpi computes per-supplier delivery and quality KPIs from the three
// input tables and materializes them as the supplier_kpis table.
//
// The join is strictly inner: orders without a delivery, and deliveries
// without an order, contribute nothing. A supplier with zero matched
// order-delivery pairs is therefore absent from supplier_kpis. That is the
// table's contract, not a defect: KPIs are computed only over complete
// transactions.
package kpi

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

const schemaKPIs = `CREATE TABLE supplier_kpis_new (
	supplier_id TEXT PRIMARY KEY,
	supplier_name TEXT,
	category TEXT,
	country TEXT,
	financial_risk_score INTEGER,
	on_time_delivery_rate REAL,
	avg_delivery_delay_days REAL,
	fill_rate REAL,
	quality_issue_rate REAL,
	n_pos INTEGER
)`

// aggregateQuery joins suppliers, purchase orders, and deliveries and
// aggregates per supplier:
//   - on_time_delivery_rate: mean of the on-time flag (delivery on or before
//     the promised date)
//   - avg_delivery_delay_days: mean of signed delay in days (negative = early)
//   - fill_rate: total delivered / total ordered, NULL if nothing was ordered
//   - quality_issue_rate: mean of the per-delivery quality flag
//   - n_pos: matched order-delivery pairs
//
// Dates are ISO-8601 text, so julianday arithmetic yields whole days.
const aggregateQuery = `
INSERT INTO supplier_kpis_new
SELECT
	s.supplier_id,
	s.supplier_name,
	s.category,
	s.country,
	s.financial_risk_score,
	AVG(CASE WHEN d.delivery_date <= po.promised_date THEN 1.0 ELSE 0.0 END),
	AVG(julianday(d.delivery_date) - julianday(po.promised_date)),
	CAST(SUM(d.quantity_delivered) AS REAL) / NULLIF(SUM(po.quantity_ordered), 0),
	AVG(CAST(d.quality_issues AS REAL)),
	COUNT(*)
FROM suppliers s
JOIN purchase_orders po ON s.supplier_id = po.supplier_id
JOIN deliveries d ON po.po_id = d.po_id
GROUP BY s.supplier_id, s.supplier_name, s.category, s.country, s.financial_risk_score
ORDER BY s.supplier_id`

// Run rebuilds the supplier_kpis table. The new table is fully populated
// before the old one is replaced, all inside one transaction, so readers
// never observe a dropped-but-empty supplier_kpis.
func Run(db *sql.DB) error {
	start := time.Now()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("kpi: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS supplier_kpis_new"); err != nil {
		return fmt.Errorf("kpi: drop staging table: %w", err)
	}
	if _, err := tx.Exec(schemaKPIs); err != nil {
		return fmt.Errorf("kpi: create supplier_kpis_new: %w", err)
	}
	res, err := tx.Exec(aggregateQuery)
	if err != nil {
		return fmt.Errorf("kpi: aggregate into supplier_kpis_new: %w", err)
	}
	if _, err := tx.Exec("DROP TABLE IF EXISTS supplier_kpis"); err != nil {
		return fmt.Errorf("kpi: drop supplier_kpis: %w", err)
	}
	if _, err := tx.Exec("ALTER TABLE supplier_kpis_new RENAME TO supplier_kpis"); err != nil {
		return fmt.Errorf("kpi: swap supplier_kpis: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("kpi: commit: %w", err)
	}

	n, _ := res.RowsAffected()
	log.Printf("kpi: supplier_kpis rebuilt, %d suppliers in %s", n, time.Since(start).Round(time.Millisecond))
	return nil
}
