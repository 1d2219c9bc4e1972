package kpi_test

import (
	"database/sql"
	"math"
	"testing"

	"suprisk/internal/kpi"
	"suprisk/internal/testutil"
)

func runKPIs(t *testing.T, db *sql.DB) {
	t.Helper()
	if err := kpi.Run(db); err != nil {
		t.Fatalf("kpi.Run: %v", err)
	}
}

func TestAggregateSingleSupplier(t *testing.T) {
	db := testutil.SetupTestDB(t)

	testutil.InsertSupplier(t, db, "S001", "Supplier 01", "Packaging", "DE", 50)
	testutil.InsertPO(t, db, "PO00001", "S001", "2024-01-02", "2024-01-10", 100)
	testutil.InsertDelivery(t, db, "PO00001", "2024-01-12", 80, 0)

	runKPIs(t, db)

	var onTime, delay, quality float64
	var fill sql.NullFloat64
	var nPOs int
	err := db.QueryRow(`SELECT on_time_delivery_rate, avg_delivery_delay_days, fill_rate,
		quality_issue_rate, n_pos FROM supplier_kpis WHERE supplier_id='S001'`).
		Scan(&onTime, &delay, &fill, &quality, &nPOs)
	if err != nil {
		t.Fatalf("read KPI row: %v", err)
	}

	if onTime != 0 {
		t.Errorf("on_time_delivery_rate = %v, want 0 (delivered 2 days late)", onTime)
	}
	if delay != 2 {
		t.Errorf("avg_delivery_delay_days = %v, want 2", delay)
	}
	if !fill.Valid || math.Abs(fill.Float64-0.8) > 1e-9 {
		t.Errorf("fill_rate = %v, want 0.8", fill)
	}
	if quality != 0 {
		t.Errorf("quality_issue_rate = %v, want 0", quality)
	}
	if nPOs != 1 {
		t.Errorf("n_pos = %d, want 1", nPOs)
	}
}

func TestAggregateMultipleOrders(t *testing.T) {
	db := testutil.SetupTestDB(t)

	testutil.InsertSupplier(t, db, "S001", "Supplier 01", "Electronics", "CN", 30)
	// On time, full, clean.
	testutil.InsertPO(t, db, "PO00001", "S001", "2024-01-02", "2024-01-10", 100)
	testutil.InsertDelivery(t, db, "PO00001", "2024-01-10", 100, 0)
	// 4 days late, partial, quality issue.
	testutil.InsertPO(t, db, "PO00002", "S001", "2024-02-01", "2024-02-10", 300)
	testutil.InsertDelivery(t, db, "PO00002", "2024-02-14", 200, 1)
	// 2 days early, full, clean.
	testutil.InsertPO(t, db, "PO00003", "S001", "2024-03-01", "2024-03-15", 100)
	testutil.InsertDelivery(t, db, "PO00003", "2024-03-13", 100, 0)

	runKPIs(t, db)

	var onTime, delay, quality float64
	var fill sql.NullFloat64
	var nPOs int
	err := db.QueryRow(`SELECT on_time_delivery_rate, avg_delivery_delay_days, fill_rate,
		quality_issue_rate, n_pos FROM supplier_kpis WHERE supplier_id='S001'`).
		Scan(&onTime, &delay, &fill, &quality, &nPOs)
	if err != nil {
		t.Fatalf("read KPI row: %v", err)
	}

	if math.Abs(onTime-2.0/3.0) > 1e-9 {
		t.Errorf("on_time_delivery_rate = %v, want 2/3", onTime)
	}
	// (0 + 4 - 2) / 3
	if math.Abs(delay-2.0/3.0) > 1e-9 {
		t.Errorf("avg_delivery_delay_days = %v, want 2/3", delay)
	}
	// 400 delivered / 500 ordered
	if !fill.Valid || math.Abs(fill.Float64-0.8) > 1e-9 {
		t.Errorf("fill_rate = %v, want 0.8", fill)
	}
	if math.Abs(quality-1.0/3.0) > 1e-9 {
		t.Errorf("quality_issue_rate = %v, want 1/3", quality)
	}
	if nPOs != 3 {
		t.Errorf("n_pos = %d, want 3", nPOs)
	}
}

// Suppliers with no matched order-delivery pair must not appear: orders
// without deliveries and deliveries without orders are silently excluded.
func TestJoinCompleteness(t *testing.T) {
	db := testutil.SetupTestDB(t)

	testutil.InsertSupplier(t, db, "S001", "Supplier 01", "Packaging", "DE", 50)
	testutil.InsertSupplier(t, db, "S002", "Supplier 02", "Textiles", "PL", 20)
	testutil.InsertSupplier(t, db, "S003", "Supplier 03", "Logistics", "NL", 70)

	// S001: complete transaction.
	testutil.InsertPO(t, db, "PO00001", "S001", "2024-01-02", "2024-01-10", 100)
	testutil.InsertDelivery(t, db, "PO00001", "2024-01-09", 100, 0)
	// S002: order without delivery.
	testutil.InsertPO(t, db, "PO00002", "S002", "2024-02-01", "2024-02-10", 50)
	// Delivery without any order.
	testutil.InsertDelivery(t, db, "PO99999", "2024-03-01", 10, 0)
	// S003: no orders at all.

	runKPIs(t, db)

	rows, err := db.Query("SELECT supplier_id FROM supplier_kpis ORDER BY supplier_id")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		rows.Scan(&id)
		ids = append(ids, id)
	}
	if len(ids) != 1 || ids[0] != "S001" {
		t.Errorf("supplier_kpis contains %v, want only S001", ids)
	}
}

func TestNullFillRateOnZeroOrderedQuantity(t *testing.T) {
	db := testutil.SetupTestDB(t)

	testutil.InsertSupplier(t, db, "S001", "Supplier 01", "Packaging", "DE", 50)
	testutil.InsertPO(t, db, "PO00001", "S001", "2024-01-02", "2024-01-10", 0)
	testutil.InsertDelivery(t, db, "PO00001", "2024-01-10", 0, 0)

	runKPIs(t, db)

	var fill sql.NullFloat64
	if err := db.QueryRow("SELECT fill_rate FROM supplier_kpis WHERE supplier_id='S001'").Scan(&fill); err != nil {
		t.Fatal(err)
	}
	if fill.Valid {
		t.Errorf("fill_rate = %v, want NULL on zero ordered quantity", fill.Float64)
	}
}

func TestOutputOrderedBySupplierID(t *testing.T) {
	db := testutil.SetupTestDB(t)

	for _, s := range []struct{ id, po string }{
		{"S003", "PO00003"}, {"S001", "PO00001"}, {"S002", "PO00002"},
	} {
		testutil.InsertSupplier(t, db, s.id, "Supplier "+s.id, "Packaging", "DE", 50)
		testutil.InsertPO(t, db, s.po, s.id, "2024-01-02", "2024-01-10", 100)
		testutil.InsertDelivery(t, db, s.po, "2024-01-10", 100, 0)
	}

	runKPIs(t, db)

	// rowid order reflects the build order, which must be supplier_id.
	rows, err := db.Query("SELECT supplier_id FROM supplier_kpis ORDER BY rowid")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		rows.Scan(&id)
		ids = append(ids, id)
	}
	want := []string{"S001", "S002", "S003"}
	for i := range want {
		if i >= len(ids) || ids[i] != want[i] {
			t.Fatalf("build order = %v, want %v", ids, want)
		}
	}
}

func TestRunReplacesPriorTable(t *testing.T) {
	db := testutil.SetupTestDB(t)

	testutil.InsertSupplier(t, db, "S001", "Supplier 01", "Packaging", "DE", 50)
	testutil.InsertPO(t, db, "PO00001", "S001", "2024-01-02", "2024-01-10", 100)
	testutil.InsertDelivery(t, db, "PO00001", "2024-01-10", 100, 0)

	runKPIs(t, db)
	runKPIs(t, db)

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM supplier_kpis").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("rows after rerun = %d, want 1 (recreate, not append)", n)
	}

	// The staging table must not be left behind.
	var staging int
	db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name='supplier_kpis_new'").Scan(&staging)
	if staging != 0 {
		t.Error("staging table supplier_kpis_new left behind after swap")
	}
}

func TestEmptyInputsYieldEmptyTable(t *testing.T) {
	db := testutil.SetupTestDB(t)

	runKPIs(t, db)

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM supplier_kpis").Scan(&n); err != nil {
		t.Fatalf("supplier_kpis should exist even with empty inputs: %v", err)
	}
	if n != 0 {
		t.Errorf("rows = %d, want 0", n)
	}
}
