// Package reports exposes the derived tables over a read-only HTTP API.
// Handlers never write supplier_kpis or supplier_risk_summary; when a table
// is absent (before the first run, or right after a failed one) they answer
// 503 with an explanatory message instead of crashing, per the consumer
// contract.
package reports

import "database/sql"

// Handler holds dependencies for the reports handlers.
type Handler struct {
	DB *sql.DB
}
