// Package generate produces the synthetic procurement dataset: suppliers,
// purchase orders, and one delivery per order, written as CSV files. The
// generator is fully deterministic for a given seed.
package generate

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"suprisk/internal/config"
	"suprisk/internal/models"
)

var categories = []string{"Packaging", "Raw Materials", "Logistics", "Electronics", "Textiles"}
var countries = []string{"DE", "PL", "CZ", "NL", "IT", "ES", "FR", "TR", "CN"}

// profile is a supplier's stochastic behavior: worse financial risk pushes
// late, partial, and quality-issue probabilities up.
type profile struct {
	lateProb    float64
	qualityProb float64
	partialProb float64
}

// Dataset holds one generated dataset before it is written out.
type Dataset struct {
	Suppliers      []models.Supplier
	PurchaseOrders []models.PurchaseOrder
	Deliveries     []models.Delivery
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// Build generates a dataset from the configuration. Same config (including
// seed) yields an identical dataset.
func Build(cfg config.Generator) (*Dataset, error) {
	start, err := time.Parse("2006-01-02", cfg.StartDate)
	if err != nil {
		return nil, fmt.Errorf("generate: bad start_date %q: %w", cfg.StartDate, err)
	}
	end, err := time.Parse("2006-01-02", cfg.EndDate)
	if err != nil {
		return nil, fmt.Errorf("generate: bad end_date %q: %w", cfg.EndDate, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("generate: end_date %s before start_date %s", cfg.EndDate, cfg.StartDate)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	ds := &Dataset{}

	profiles := make(map[string]profile, cfg.NSuppliers)
	for i := 1; i <= cfg.NSuppliers; i++ {
		s := models.Supplier{
			SupplierID:         fmt.Sprintf("S%03d", i),
			SupplierName:       fmt.Sprintf("Supplier %02d", i),
			Category:           categories[rng.Intn(len(categories))],
			Country:            countries[rng.Intn(len(countries))],
			FinancialRiskScore: rng.Intn(101),
		}
		ds.Suppliers = append(ds.Suppliers, s)

		fin := float64(s.FinancialRiskScore) / 100.0
		profiles[s.SupplierID] = profile{
			lateProb:    clamp(cfg.LateProb+0.25*fin, 0.05, 0.65),
			qualityProb: clamp(cfg.BaseQualityIssueProb+0.06*fin, 0.01, 0.20),
			partialProb: clamp(cfg.PartialDeliveryProb+0.15*fin, 0.05, 0.55),
		}
	}

	spanDays := int(end.Sub(start).Hours() / 24)
	for j := 1; j <= cfg.NPOs; j++ {
		supplier := ds.Suppliers[rng.Intn(len(ds.Suppliers))]
		orderDate := start.AddDate(0, 0, rng.Intn(spanDays+1))
		leadTime := cfg.LeadTimeMinDays + rng.Intn(cfg.LeadTimeMaxDays-cfg.LeadTimeMinDays+1)
		promised := orderDate.AddDate(0, 0, leadTime)

		po := models.PurchaseOrder{
			POID:            fmt.Sprintf("PO%05d", j),
			SupplierID:      supplier.SupplierID,
			OrderDate:       orderDate.Format("2006-01-02"),
			PromisedDate:    promised.Format("2006-01-02"),
			QuantityOrdered: cfg.QtyMin + rng.Intn(cfg.QtyMax-cfg.QtyMin+1),
		}
		ds.PurchaseOrders = append(ds.PurchaseOrders, po)

		prof := profiles[supplier.SupplierID]

		// Decide late / early / on-time.
		deliveryDate := promised
		r := rng.Float64()
		if r < prof.lateProb {
			delay := cfg.LateMinDays + rng.Intn(cfg.LateMaxDays-cfg.LateMinDays+1)
			deliveryDate = promised.AddDate(0, 0, delay)
		} else if r < prof.lateProb+cfg.EarlyProb {
			early := cfg.EarlyMinDays + rng.Intn(cfg.EarlyMaxDays-cfg.EarlyMinDays+1)
			deliveryDate = promised.AddDate(0, 0, -early)
		}

		delivered := po.QuantityOrdered
		if rng.Float64() < prof.partialProb {
			ratio := cfg.PartialMinRatio + rng.Float64()*(cfg.PartialMaxRatio-cfg.PartialMinRatio)
			delivered = int(math.Round(float64(po.QuantityOrdered) * ratio))
			if delivered < 0 {
				delivered = 0
			}
		}

		quality := 0
		if rng.Float64() < prof.qualityProb {
			quality = 1
		}

		ds.Deliveries = append(ds.Deliveries, models.Delivery{
			POID:              po.POID,
			DeliveryDate:      deliveryDate.Format("2006-01-02"),
			QuantityDelivered: delivered,
			QualityIssues:     quality,
		})
	}

	return ds, nil
}

// WriteCSVs writes the dataset into dataDir as suppliers.csv,
// purchase_orders.csv, and deliveries.csv, creating the directory if needed.
func (ds *Dataset) WriteCSVs(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("generate: create data dir: %w", err)
	}

	supRows := [][]string{{"supplier_id", "supplier_name", "category", "country", "financial_risk_score"}}
	for _, s := range ds.Suppliers {
		supRows = append(supRows, []string{s.SupplierID, s.SupplierName, s.Category, s.Country, strconv.Itoa(s.FinancialRiskScore)})
	}
	if err := writeCSV(filepath.Join(dataDir, "suppliers.csv"), supRows); err != nil {
		return err
	}

	poRows := [][]string{{"po_id", "supplier_id", "order_date", "promised_date", "quantity_ordered"}}
	for _, po := range ds.PurchaseOrders {
		poRows = append(poRows, []string{po.POID, po.SupplierID, po.OrderDate, po.PromisedDate, strconv.Itoa(po.QuantityOrdered)})
	}
	if err := writeCSV(filepath.Join(dataDir, "purchase_orders.csv"), poRows); err != nil {
		return err
	}

	delRows := [][]string{{"po_id", "delivery_date", "quantity_delivered", "quality_issues"}}
	for _, d := range ds.Deliveries {
		delRows = append(delRows, []string{d.POID, d.DeliveryDate, strconv.Itoa(d.QuantityDelivered), strconv.Itoa(d.QualityIssues)})
	}
	return writeCSV(filepath.Join(dataDir, "deliveries.csv"), delRows)
}

// Run builds the dataset and writes the CSV files.
func Run(cfg config.Generator, dataDir string) error {
	ds, err := Build(cfg)
	if err != nil {
		return err
	}
	return ds.WriteCSVs(dataDir)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("generate: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("generate: write %s: %w", path, err)
	}
	return nil
}
