package reports

import (
	"database/sql"
	"net/http"
	"strconv"

	"suprisk/internal/models"
	"suprisk/internal/response"
	"suprisk/internal/store"
)

const summarySelect = `SELECT supplier_id, supplier_name, category, country,
	financial_risk_score, on_time_delivery_rate, avg_delivery_delay_days,
	fill_rate, quality_issue_rate, n_pos,
	norm_on_time, norm_delay, norm_fill, norm_quality,
	performance_score, risk_score
	FROM supplier_risk_summary`

// scanSummaries reads supplier_risk_summary rows.
func scanSummaries(rows *sql.Rows) ([]models.SupplierRiskSummary, error) {
	items := []models.SupplierRiskSummary{}
	for rows.Next() {
		var s models.SupplierRiskSummary
		var fill sql.NullFloat64
		if err := rows.Scan(&s.SupplierID, &s.SupplierName, &s.Category, &s.Country,
			&s.FinancialRiskScore, &s.OnTimeDeliveryRate, &s.AvgDeliveryDelayDays,
			&fill, &s.QualityIssueRate, &s.NPOs,
			&s.NormOnTime, &s.NormDelay, &s.NormFill, &s.NormQuality,
			&s.PerformanceScore, &s.RiskScore); err != nil {
			return nil, err
		}
		if fill.Valid {
			v := fill.Float64
			s.FillRate = &v
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// ListRisk returns supplier_risk_summary in canonical order: risk score
// descending, ties in insertion (KPI table) order. Accepts category/country
// filters and an optional limit (e.g. top 10 highest risk).
func (h *Handler) ListRisk(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		response.Err(w, "database not initialized", 503)
		return
	}
	ok, err := store.TableExists(h.DB, "supplier_risk_summary")
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if !ok {
		response.Err(w, "supplier_risk_summary not computed yet", 503)
		return
	}

	query := summarySelect + " WHERE 1=1"
	var args []interface{}
	if c := r.URL.Query().Get("category"); c != "" {
		query += " AND category=?"
		args = append(args, c)
	}
	if c := r.URL.Query().Get("country"); c != "" {
		query += " AND country=?"
		args = append(args, c)
	}
	// rowid preserves the scorer's stable tie order.
	query += " ORDER BY risk_score DESC, rowid"
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			response.Err(w, "invalid limit", 400)
			return
		}
		query += " LIMIT ?"
		args = append(args, n)
	}

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	items, err := scanSummaries(rows)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	response.JSON(w, items)
}

// GetRisk returns a single supplier's risk summary.
func (h *Handler) GetRisk(w http.ResponseWriter, r *http.Request, id string) {
	ok, err := store.TableExists(h.DB, "supplier_risk_summary")
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if !ok {
		response.Err(w, "supplier_risk_summary not computed yet", 503)
		return
	}

	rows, err := h.DB.Query(summarySelect+" WHERE supplier_id=?", id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	items, err := scanSummaries(rows)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if len(items) == 0 {
		response.Err(w, "not found", 404)
		return
	}
	response.JSON(w, items[0])
}
