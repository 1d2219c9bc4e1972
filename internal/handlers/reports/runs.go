package reports

import (
	"net/http"
	"strconv"

	"suprisk/internal/models"
	"suprisk/internal/response"
	"suprisk/internal/store"
)

// ListRuns returns recent pipeline runs, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		response.Err(w, "database not initialized", 503)
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			response.Err(w, "invalid limit", 400)
			return
		}
		limit = n
	}

	rows, err := h.DB.Query(`SELECT id, started_at, finished_at, status, failed_stage, error
		FROM pipeline_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	items := []models.PipelineRun{}
	for rows.Next() {
		var run models.PipelineRun
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status,
			&run.FailedStage, &run.Error); err != nil {
			response.Err(w, err.Error(), 500)
			return
		}
		items = append(items, run)
	}
	response.JSON(w, items)
}

// Health reports liveness and whether the derived tables are present. The
// tables being absent is not an error: a consumer is expected to tolerate
// the window between a failed run and the next successful one.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{"status": "ok"}
	for _, table := range []string{"supplier_kpis", "supplier_risk_summary"} {
		ok, err := store.TableExists(h.DB, table)
		if err != nil {
			response.Err(w, err.Error(), 500)
			return
		}
		status[table] = ok
	}
	response.JSON(w, status)
}
