package reports

import (
	"database/sql"
	"net/http"

	"suprisk/internal/models"
	"suprisk/internal/response"
	"suprisk/internal/store"
)

// ListKPIs returns supplier_kpis ordered by supplier ID, optionally filtered
// by category and country.
func (h *Handler) ListKPIs(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		response.Err(w, "database not initialized", 503)
		return
	}
	ok, err := store.TableExists(h.DB, "supplier_kpis")
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if !ok {
		response.Err(w, "supplier_kpis not computed yet", 503)
		return
	}

	query := `SELECT supplier_id, supplier_name, category, country,
		financial_risk_score, on_time_delivery_rate, avg_delivery_delay_days,
		fill_rate, quality_issue_rate, n_pos
		FROM supplier_kpis WHERE 1=1`
	var args []interface{}
	if c := r.URL.Query().Get("category"); c != "" {
		query += " AND category=?"
		args = append(args, c)
	}
	if c := r.URL.Query().Get("country"); c != "" {
		query += " AND country=?"
		args = append(args, c)
	}
	query += " ORDER BY supplier_id"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	items := []models.SupplierKPI{}
	for rows.Next() {
		var k models.SupplierKPI
		var fill sql.NullFloat64
		if err := rows.Scan(&k.SupplierID, &k.SupplierName, &k.Category, &k.Country,
			&k.FinancialRiskScore, &k.OnTimeDeliveryRate, &k.AvgDeliveryDelayDays,
			&fill, &k.QualityIssueRate, &k.NPOs); err != nil {
			response.Err(w, err.Error(), 500)
			return
		}
		if fill.Valid {
			v := fill.Float64
			k.FillRate = &v
		}
		items = append(items, k)
	}
	response.JSON(w, items)
}
