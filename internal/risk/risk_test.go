package risk_test

import (
	"database/sql"
	"math"
	"testing"

	"suprisk/internal/kpi"
	"suprisk/internal/models"
	"suprisk/internal/risk"
	"suprisk/internal/testutil"
)

func f(v float64) *float64 { return &v }

func makeKPI(id string, onTime, delay float64, fill *float64, quality float64, finRisk int) models.SupplierKPI {
	return models.SupplierKPI{
		SupplierID:           id,
		SupplierName:         "Supplier " + id,
		Category:             "Packaging",
		Country:              "DE",
		FinancialRiskScore:   finRisk,
		OnTimeDeliveryRate:   onTime,
		AvgDeliveryDelayDays: delay,
		FillRate:             fill,
		QualityIssueRate:     quality,
		NPOs:                 10,
	}
}

func TestScoreAllNormalizationBounds(t *testing.T) {
	kpis := []models.SupplierKPI{
		makeKPI("S001", 0.9, -1.0, f(1.0), 0.02, 10),
		makeKPI("S002", 0.5, 3.5, f(0.8), 0.10, 60),
		makeKPI("S003", 0.1, 8.0, f(0.6), 0.20, 95),
	}

	out := risk.ScoreAll(kpis)
	if len(out) != 3 {
		t.Fatalf("Expected 3 summaries, got %d", len(out))
	}

	for _, s := range out {
		for name, v := range map[string]float64{
			"norm_on_time":      s.NormOnTime,
			"norm_delay":        s.NormDelay,
			"norm_fill":         s.NormFill,
			"norm_quality":      s.NormQuality,
			"performance_score": s.PerformanceScore,
		} {
			if v < 0 || v > 1 {
				t.Errorf("%s: %s = %v outside [0,1]", s.SupplierID, name, v)
			}
		}
		if s.RiskScore < 0 || s.RiskScore > 1 {
			t.Errorf("%s: risk_score = %v outside [0,1] with financial risk in [0,100]", s.SupplierID, s.RiskScore)
		}
	}
}

// The best supplier on every metric should hold norm 1.0 everywhere, the
// worst 0.0, after orientation flips for the lower-is-better metrics.
func TestScoreOrientation(t *testing.T) {
	kpis := []models.SupplierKPI{
		makeKPI("S001", 1.0, -2.0, f(1.0), 0.0, 0),  // best everywhere
		makeKPI("S002", 0.0, 10.0, f(0.5), 0.3, 100), // worst everywhere
	}
	b := risk.ComputeBounds(kpis)

	best := risk.Score(kpis[0], b)
	worst := risk.Score(kpis[1], b)

	for name, v := range map[string]float64{
		"norm_on_time": best.NormOnTime,
		"norm_delay":   best.NormDelay,
		"norm_fill":    best.NormFill,
		"norm_quality": best.NormQuality,
	} {
		if v != 1.0 {
			t.Errorf("best supplier %s = %v, want 1.0", name, v)
		}
	}
	for name, v := range map[string]float64{
		"norm_on_time": worst.NormOnTime,
		"norm_delay":   worst.NormDelay,
		"norm_fill":    worst.NormFill,
		"norm_quality": worst.NormQuality,
	} {
		if v != 0.0 {
			t.Errorf("worst supplier %s = %v, want 0.0", name, v)
		}
	}
}

func TestDegenerateRangeNormalizesToOne(t *testing.T) {
	// Identical fill rate across all suppliers: zero variance, norm_fill must
	// be exactly 1.0 for every row.
	kpis := []models.SupplierKPI{
		makeKPI("S001", 0.9, 1.0, f(0.85), 0.02, 10),
		makeKPI("S002", 0.5, 3.0, f(0.85), 0.10, 60),
		makeKPI("S003", 0.1, 8.0, f(0.85), 0.20, 95),
	}
	for _, s := range risk.ScoreAll(kpis) {
		if s.NormFill != 1.0 {
			t.Errorf("%s: norm_fill = %v, want exactly 1.0 for degenerate range", s.SupplierID, s.NormFill)
		}
	}
}

func TestCompositeFormula(t *testing.T) {
	kpis := []models.SupplierKPI{
		makeKPI("S001", 0.9, -1.0, f(1.0), 0.02, 10),
		makeKPI("S002", 0.5, 3.5, f(0.8), 0.10, 60),
		makeKPI("S003", 0.1, 8.0, f(0.6), 0.20, 95),
	}
	for _, s := range risk.ScoreAll(kpis) {
		want := 0.7*(1-s.PerformanceScore) + 0.3*(float64(s.FinancialRiskScore)/100.0)
		if math.Abs(s.RiskScore-want) > 1e-9 {
			t.Errorf("%s: risk_score = %v, want %v", s.SupplierID, s.RiskScore, want)
		}
		wantPerf := (s.NormOnTime + s.NormDelay + s.NormFill + s.NormQuality) / 4.0
		if math.Abs(s.PerformanceScore-wantPerf) > 1e-9 {
			t.Errorf("%s: performance_score = %v, want %v", s.SupplierID, s.PerformanceScore, wantPerf)
		}
	}
}

func TestRankingNonIncreasing(t *testing.T) {
	kpis := []models.SupplierKPI{
		makeKPI("S001", 0.9, -1.0, f(1.0), 0.02, 10),
		makeKPI("S002", 0.5, 3.5, f(0.8), 0.10, 60),
		makeKPI("S003", 0.1, 8.0, f(0.6), 0.20, 95),
		makeKPI("S004", 0.7, 1.5, f(0.9), 0.05, 30),
	}
	out := risk.ScoreAll(kpis)
	for i := 1; i < len(out); i++ {
		if out[i].RiskScore > out[i-1].RiskScore {
			t.Errorf("ranking not non-increasing at %d: %v > %v", i, out[i].RiskScore, out[i-1].RiskScore)
		}
	}
}

// Equal risk scores must keep the KPI table's (supplier_id) order.
func TestRankingStableTies(t *testing.T) {
	kpis := []models.SupplierKPI{
		makeKPI("S001", 0.5, 2.0, f(0.8), 0.1, 50),
		makeKPI("S002", 0.5, 2.0, f(0.8), 0.1, 50),
		makeKPI("S003", 0.5, 2.0, f(0.8), 0.1, 50),
	}
	out := risk.ScoreAll(kpis)
	for i, want := range []string{"S001", "S002", "S003"} {
		if out[i].SupplierID != want {
			t.Errorf("tie order position %d: got %s, want %s", i, out[i].SupplierID, want)
		}
	}
}

func TestNullFillRate(t *testing.T) {
	kpis := []models.SupplierKPI{
		makeKPI("S001", 0.9, 1.0, f(0.7), 0.02, 10),
		makeKPI("S002", 0.5, 3.0, nil, 0.10, 60), // zero ordered quantity upstream
		makeKPI("S003", 0.1, 8.0, f(0.9), 0.20, 95),
	}
	out := risk.ScoreAll(kpis)
	for _, s := range out {
		if s.SupplierID == "S002" {
			if s.NormFill != 1.0 {
				t.Errorf("null fill_rate: norm_fill = %v, want 1.0", s.NormFill)
			}
			if math.IsNaN(s.PerformanceScore) || math.IsNaN(s.RiskScore) {
				t.Error("null fill_rate propagated NaN into scores")
			}
		}
	}

	// Bounds for fill must come from the non-null rows only: S003's 0.9 is
	// the max, S001's 0.7 the min.
	b := risk.ComputeBounds(kpis)
	s1 := risk.Score(kpis[0], b)
	s3 := risk.Score(kpis[2], b)
	if s1.NormFill != 0.0 || s3.NormFill != 1.0 {
		t.Errorf("fill bounds ignored null row incorrectly: got %v and %v", s1.NormFill, s3.NormFill)
	}
}

// Single supplier, one late partial delivery: the canonical scenario. All
// four metrics are degenerate, so performance is 1.0 and the composite is
// carried entirely by the financial input.
func TestSingleSupplierScenario(t *testing.T) {
	db := testutil.SetupTestDB(t)

	testutil.InsertSupplier(t, db, "S001", "Supplier 01", "Packaging", "DE", 50)
	testutil.InsertPO(t, db, "PO00001", "S001", "2024-01-02", "2024-01-10", 100)
	testutil.InsertDelivery(t, db, "PO00001", "2024-01-12", 80, 0)

	if err := kpi.Run(db); err != nil {
		t.Fatalf("kpi.Run: %v", err)
	}
	if err := risk.Run(db); err != nil {
		t.Fatalf("risk.Run: %v", err)
	}

	var s models.SupplierRiskSummary
	var fill sql.NullFloat64
	err := db.QueryRow(`SELECT on_time_delivery_rate, avg_delivery_delay_days, fill_rate,
		quality_issue_rate, n_pos, norm_on_time, norm_delay, norm_fill, norm_quality,
		performance_score, risk_score FROM supplier_risk_summary WHERE supplier_id='S001'`).
		Scan(&s.OnTimeDeliveryRate, &s.AvgDeliveryDelayDays, &fill, &s.QualityIssueRate, &s.NPOs,
			&s.NormOnTime, &s.NormDelay, &s.NormFill, &s.NormQuality, &s.PerformanceScore, &s.RiskScore)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}

	if s.OnTimeDeliveryRate != 0 {
		t.Errorf("on_time_delivery_rate = %v, want 0", s.OnTimeDeliveryRate)
	}
	if s.AvgDeliveryDelayDays != 2 {
		t.Errorf("avg_delivery_delay_days = %v, want 2", s.AvgDeliveryDelayDays)
	}
	if !fill.Valid || math.Abs(fill.Float64-0.8) > 1e-9 {
		t.Errorf("fill_rate = %v, want 0.8", fill)
	}
	if s.QualityIssueRate != 0 {
		t.Errorf("quality_issue_rate = %v, want 0", s.QualityIssueRate)
	}
	if s.NPOs != 1 {
		t.Errorf("n_pos = %d, want 1", s.NPOs)
	}
	for name, v := range map[string]float64{
		"norm_on_time": s.NormOnTime, "norm_delay": s.NormDelay,
		"norm_fill": s.NormFill, "norm_quality": s.NormQuality,
	} {
		if v != 1.0 {
			t.Errorf("%s = %v, want 1.0 (single supplier degenerates every metric)", name, v)
		}
	}
	if s.PerformanceScore != 1.0 {
		t.Errorf("performance_score = %v, want 1.0", s.PerformanceScore)
	}
	if math.Abs(s.RiskScore-0.15) > 1e-9 {
		t.Errorf("risk_score = %v, want 0.15", s.RiskScore)
	}
}

func TestRunReplacesPriorSummary(t *testing.T) {
	db := testutil.SetupTestDB(t)

	testutil.InsertSupplier(t, db, "S001", "Supplier 01", "Packaging", "DE", 50)
	testutil.InsertSupplier(t, db, "S002", "Supplier 02", "Textiles", "PL", 20)
	testutil.InsertPO(t, db, "PO00001", "S001", "2024-01-02", "2024-01-10", 100)
	testutil.InsertDelivery(t, db, "PO00001", "2024-01-12", 80, 0)
	testutil.InsertPO(t, db, "PO00002", "S002", "2024-02-01", "2024-02-12", 200)
	testutil.InsertDelivery(t, db, "PO00002", "2024-02-10", 200, 1)

	if err := kpi.Run(db); err != nil {
		t.Fatalf("kpi.Run: %v", err)
	}
	if err := risk.Run(db); err != nil {
		t.Fatalf("risk.Run: %v", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM supplier_risk_summary").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("summary rows = %d, want 2", n)
	}

	// Remove one supplier's transactions and recompute: the summary must
	// shrink, not accumulate.
	if _, err := db.Exec("DELETE FROM deliveries WHERE po_id='PO00002'"); err != nil {
		t.Fatal(err)
	}
	if err := kpi.Run(db); err != nil {
		t.Fatalf("kpi.Run: %v", err)
	}
	if err := risk.Run(db); err != nil {
		t.Fatalf("risk.Run: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM supplier_risk_summary").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("summary rows after recompute = %d, want 1", n)
	}
}

func TestIdempotence(t *testing.T) {
	db := testutil.SetupTestDB(t)

	testutil.InsertSupplier(t, db, "S001", "Supplier 01", "Packaging", "DE", 50)
	testutil.InsertSupplier(t, db, "S002", "Supplier 02", "Textiles", "PL", 20)
	testutil.InsertPO(t, db, "PO00001", "S001", "2024-01-02", "2024-01-10", 100)
	testutil.InsertDelivery(t, db, "PO00001", "2024-01-12", 80, 0)
	testutil.InsertPO(t, db, "PO00002", "S002", "2024-02-01", "2024-02-12", 200)
	testutil.InsertDelivery(t, db, "PO00002", "2024-02-10", 200, 1)

	snapshot := func() []models.SupplierRiskSummary {
		t.Helper()
		if err := kpi.Run(db); err != nil {
			t.Fatalf("kpi.Run: %v", err)
		}
		if err := risk.Run(db); err != nil {
			t.Fatalf("risk.Run: %v", err)
		}
		kpis, err := risk.ReadKPIs(db)
		if err != nil {
			t.Fatalf("ReadKPIs: %v", err)
		}
		return risk.ScoreAll(kpis)
	}

	first := snapshot()
	second := snapshot()
	if len(first) != len(second) {
		t.Fatalf("row counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.SupplierID != b.SupplierID || a.RiskScore != b.RiskScore ||
			a.PerformanceScore != b.PerformanceScore || a.NormOnTime != b.NormOnTime ||
			a.NormDelay != b.NormDelay || a.NormFill != b.NormFill || a.NormQuality != b.NormQuality {
			t.Errorf("row %d differs between identical runs: %+v vs %+v", i, a, b)
		}
	}
}
