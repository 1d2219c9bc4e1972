// Package risk turns the supplier_kpis table into supplier_risk_summary:
// each KPI is min-max normalized across the current supplier population,
// oriented so that higher always means better behavior, averaged into a
// performance score, and blended with the supplier's financial risk into the
// final composite.
package risk

import (
	"database/sql"
	"fmt"
	"log"
	"sort"
	"time"

	"suprisk/internal/models"
)

// Weights of the composite. These are part of the product definition of
// "risk", not tunables: changing them changes what the score means.
const (
	performanceWeight = 0.7
	financialWeight   = 0.3
)

// Bounds holds the cross-supplier min/max of each KPI for the current run.
// Fill-rate bounds ignore NULL fill rates.
type Bounds struct {
	MinOnTime, MaxOnTime   float64
	MinDelay, MaxDelay     float64
	MinFill, MaxFill       float64
	MinQuality, MaxQuality float64

	hasFill bool
}

// normalize rescales v into [0,1] against [min,max]. A degenerate range
// (max == min, zero variance across suppliers) yields exactly 1.0: with no
// information to differentiate suppliers, every one is treated as fully
// satisfactory rather than erroring or dividing by zero.
func normalize(v, min, max float64) float64 {
	if max == min {
		return 1.0
	}
	return (v - min) / (max - min)
}

// invert flips a normalized score for lower-is-better metrics. The
// degenerate case stays 1.0, not 0.0.
func invert(v, min, max float64) float64 {
	if max == min {
		return 1.0
	}
	return 1.0 - normalize(v, min, max)
}

// ComputeBounds scans the KPI rows for each metric's min and max.
func ComputeBounds(kpis []models.SupplierKPI) Bounds {
	var b Bounds
	for i, k := range kpis {
		if i == 0 {
			b.MinOnTime, b.MaxOnTime = k.OnTimeDeliveryRate, k.OnTimeDeliveryRate
			b.MinDelay, b.MaxDelay = k.AvgDeliveryDelayDays, k.AvgDeliveryDelayDays
			b.MinQuality, b.MaxQuality = k.QualityIssueRate, k.QualityIssueRate
		}
		if k.OnTimeDeliveryRate < b.MinOnTime {
			b.MinOnTime = k.OnTimeDeliveryRate
		}
		if k.OnTimeDeliveryRate > b.MaxOnTime {
			b.MaxOnTime = k.OnTimeDeliveryRate
		}
		if k.AvgDeliveryDelayDays < b.MinDelay {
			b.MinDelay = k.AvgDeliveryDelayDays
		}
		if k.AvgDeliveryDelayDays > b.MaxDelay {
			b.MaxDelay = k.AvgDeliveryDelayDays
		}
		if k.QualityIssueRate < b.MinQuality {
			b.MinQuality = k.QualityIssueRate
		}
		if k.QualityIssueRate > b.MaxQuality {
			b.MaxQuality = k.QualityIssueRate
		}
		if k.FillRate != nil {
			if !b.hasFill {
				b.MinFill, b.MaxFill = *k.FillRate, *k.FillRate
				b.hasFill = true
			}
			if *k.FillRate < b.MinFill {
				b.MinFill = *k.FillRate
			}
			if *k.FillRate > b.MaxFill {
				b.MaxFill = *k.FillRate
			}
		}
	}
	return b
}

// Score computes one supplier's normalized sub-scores, performance score,
// and composite risk score against the population bounds.
//
// A NULL fill rate (zero total ordered quantity) carries no information, so
// its norm_fill is 1.0 under the same policy as a degenerate range; it is
// already excluded from the fill-rate bounds.
func Score(k models.SupplierKPI, b Bounds) models.SupplierRiskSummary {
	s := models.SupplierRiskSummary{SupplierKPI: k}

	s.NormOnTime = normalize(k.OnTimeDeliveryRate, b.MinOnTime, b.MaxOnTime)
	s.NormDelay = invert(k.AvgDeliveryDelayDays, b.MinDelay, b.MaxDelay)
	s.NormQuality = invert(k.QualityIssueRate, b.MinQuality, b.MaxQuality)
	if k.FillRate == nil {
		s.NormFill = 1.0
	} else {
		s.NormFill = normalize(*k.FillRate, b.MinFill, b.MaxFill)
	}

	s.PerformanceScore = (s.NormOnTime + s.NormDelay + s.NormFill + s.NormQuality) / 4.0
	s.RiskScore = performanceWeight*(1.0-s.PerformanceScore) +
		financialWeight*(float64(k.FinancialRiskScore)/100.0)
	return s
}

// ScoreAll scores every KPI row and returns the summaries ordered by risk
// score descending. The sort is stable: ties keep the KPI table's order.
func ScoreAll(kpis []models.SupplierKPI) []models.SupplierRiskSummary {
	b := ComputeBounds(kpis)
	out := make([]models.SupplierRiskSummary, 0, len(kpis))
	for _, k := range kpis {
		out = append(out, Score(k, b))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RiskScore > out[j].RiskScore
	})
	return out
}

const schemaSummary = `CREATE TABLE supplier_risk_summary_new (
	supplier_id TEXT PRIMARY KEY,
	supplier_name TEXT,
	category TEXT,
	country TEXT,
	financial_risk_score INTEGER,
	on_time_delivery_rate REAL,
	avg_delivery_delay_days REAL,
	fill_rate REAL,
	quality_issue_rate REAL,
	n_pos INTEGER,
	norm_on_time REAL,
	norm_delay REAL,
	norm_fill REAL,
	norm_quality REAL,
	performance_score REAL,
	risk_score REAL
)`

// ReadKPIs returns all supplier_kpis rows ordered by supplier ID.
func ReadKPIs(db *sql.DB) ([]models.SupplierKPI, error) {
	rows, err := db.Query(`SELECT supplier_id, supplier_name, category, country,
		financial_risk_score, on_time_delivery_rate, avg_delivery_delay_days,
		fill_rate, quality_issue_rate, n_pos
		FROM supplier_kpis ORDER BY supplier_id`)
	if err != nil {
		return nil, fmt.Errorf("risk: read supplier_kpis: %w", err)
	}
	defer rows.Close()

	var kpis []models.SupplierKPI
	for rows.Next() {
		var k models.SupplierKPI
		var fill sql.NullFloat64
		if err := rows.Scan(&k.SupplierID, &k.SupplierName, &k.Category, &k.Country,
			&k.FinancialRiskScore, &k.OnTimeDeliveryRate, &k.AvgDeliveryDelayDays,
			&fill, &k.QualityIssueRate, &k.NPOs); err != nil {
			return nil, fmt.Errorf("risk: scan supplier_kpis: %w", err)
		}
		if fill.Valid {
			v := fill.Float64
			k.FillRate = &v
		}
		kpis = append(kpis, k)
	}
	return kpis, rows.Err()
}

// Run rebuilds the supplier_risk_summary table from supplier_kpis. Like the
// KPI stage, the replacement is a staged build plus an in-transaction swap.
func Run(db *sql.DB) error {
	start := time.Now()

	kpis, err := ReadKPIs(db)
	if err != nil {
		return err
	}
	summaries := ScoreAll(kpis)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("risk: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS supplier_risk_summary_new"); err != nil {
		return fmt.Errorf("risk: drop staging table: %w", err)
	}
	if _, err := tx.Exec(schemaSummary); err != nil {
		return fmt.Errorf("risk: create supplier_risk_summary_new: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO supplier_risk_summary_new
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("risk: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range summaries {
		var fill interface{}
		if s.FillRate != nil {
			fill = *s.FillRate
		}
		if _, err := stmt.Exec(s.SupplierID, s.SupplierName, s.Category, s.Country,
			s.FinancialRiskScore, s.OnTimeDeliveryRate, s.AvgDeliveryDelayDays,
			fill, s.QualityIssueRate, s.NPOs,
			s.NormOnTime, s.NormDelay, s.NormFill, s.NormQuality,
			s.PerformanceScore, s.RiskScore); err != nil {
			return fmt.Errorf("risk: insert supplier_risk_summary_new: %w", err)
		}
	}

	if _, err := tx.Exec("DROP TABLE IF EXISTS supplier_risk_summary"); err != nil {
		return fmt.Errorf("risk: drop supplier_risk_summary: %w", err)
	}
	if _, err := tx.Exec("ALTER TABLE supplier_risk_summary_new RENAME TO supplier_risk_summary"); err != nil {
		return fmt.Errorf("risk: swap supplier_risk_summary: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("risk: commit: %w", err)
	}

	log.Printf("risk: supplier_risk_summary rebuilt, %d suppliers in %s", len(summaries), time.Since(start).Round(time.Millisecond))
	return nil
}
