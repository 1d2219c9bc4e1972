package models

// APIResponse is the standard JSON envelope for all API responses.
type APIResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total int `json:"total,omitempty"`
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

// Supplier is a row of the suppliers input table. Immutable for a run;
// written by the generator/loader, read-only to the engine.
type Supplier struct {
	SupplierID         string `json:"supplier_id"`
	SupplierName       string `json:"supplier_name"`
	Category           string `json:"category"`
	Country            string `json:"country"`
	FinancialRiskScore int    `json:"financial_risk_score"`
}

// PurchaseOrder is a row of the purchase_orders input table.
// Dates are ISO-8601 (YYYY-MM-DD) strings.
type PurchaseOrder struct {
	POID            string `json:"po_id"`
	SupplierID      string `json:"supplier_id"`
	OrderDate       string `json:"order_date"`
	PromisedDate    string `json:"promised_date"`
	QuantityOrdered int    `json:"quantity_ordered"`
}

// Delivery is a row of the deliveries input table. At most one delivery
// per purchase order, so po_id doubles as the primary key.
type Delivery struct {
	POID              string `json:"po_id"`
	DeliveryDate      string `json:"delivery_date"`
	QuantityDelivered int    `json:"quantity_delivered"`
	QualityIssues     int    `json:"quality_issues"`
}

// SupplierKPI is a row of the derived supplier_kpis table: one row per
// supplier with at least one matched order-delivery pair.
type SupplierKPI struct {
	SupplierID           string   `json:"supplier_id"`
	SupplierName         string   `json:"supplier_name"`
	Category             string   `json:"category"`
	Country              string   `json:"country"`
	FinancialRiskScore   int      `json:"financial_risk_score"`
	OnTimeDeliveryRate   float64  `json:"on_time_delivery_rate"`
	AvgDeliveryDelayDays float64  `json:"avg_delivery_delay_days"`
	FillRate             *float64 `json:"fill_rate"` // nil when total ordered qty is zero
	QualityIssueRate     float64  `json:"quality_issue_rate"`
	NPOs                 int      `json:"n_pos"`
}

// SupplierRiskSummary is a row of the derived supplier_risk_summary table:
// the supplier's KPIs plus four normalized sub-scores and the composite.
type SupplierRiskSummary struct {
	SupplierKPI
	NormOnTime       float64 `json:"norm_on_time"`
	NormDelay        float64 `json:"norm_delay"`
	NormFill         float64 `json:"norm_fill"`
	NormQuality      float64 `json:"norm_quality"`
	PerformanceScore float64 `json:"performance_score"`
	RiskScore        float64 `json:"risk_score"`
}

// PipelineRun records one execution of the pipeline.
type PipelineRun struct {
	ID          string `json:"id"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at,omitempty"`
	Status      string `json:"status"` // running, succeeded, failed
	FailedStage string `json:"failed_stage,omitempty"`
	Error       string `json:"error,omitempty"`
}
