package reports

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/xuri/excelize/v2"

	"suprisk/internal/response"
	"suprisk/internal/store"
)

// ExportRisk exports the risk summary to CSV or Excel, in canonical order.
func (h *Handler) ExportRisk(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
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

	rows, err := h.DB.Query(summarySelect + " ORDER BY risk_score DESC, rowid")
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

	headers := []string{
		"Supplier ID", "Supplier Name", "Category", "Country", "Financial Risk",
		"On-Time Rate", "Avg Delay (days)", "Fill Rate", "Quality Issue Rate", "POs",
		"Norm On-Time", "Norm Delay", "Norm Fill", "Norm Quality",
		"Performance Score", "Risk Score",
	}
	var data [][]string
	for _, s := range items {
		fill := ""
		if s.FillRate != nil {
			fill = fmt.Sprintf("%.4f", *s.FillRate)
		}
		data = append(data, []string{
			s.SupplierID, s.SupplierName, s.Category, s.Country,
			fmt.Sprintf("%d", s.FinancialRiskScore),
			fmt.Sprintf("%.4f", s.OnTimeDeliveryRate),
			fmt.Sprintf("%.2f", s.AvgDeliveryDelayDays),
			fill,
			fmt.Sprintf("%.4f", s.QualityIssueRate),
			fmt.Sprintf("%d", s.NPOs),
			fmt.Sprintf("%.4f", s.NormOnTime),
			fmt.Sprintf("%.4f", s.NormDelay),
			fmt.Sprintf("%.4f", s.NormFill),
			fmt.Sprintf("%.4f", s.NormQuality),
			fmt.Sprintf("%.4f", s.PerformanceScore),
			fmt.Sprintf("%.4f", s.RiskScore),
		})
	}

	if format == "xlsx" {
		exportExcel(w, "Supplier Risk", headers, data)
	} else {
		exportCSV(w, "supplier_risk_summary.csv", headers, data)
	}
}

// exportCSV writes data to CSV format.
func exportCSV(w http.ResponseWriter, filename string, headers []string, data [][]string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		http.Error(w, "Failed to write CSV headers", 500)
		return
	}
	for _, row := range data {
		if err := writer.Write(row); err != nil {
			http.Error(w, "Failed to write CSV row", 500)
			return
		}
	}
}

// exportExcel writes data to Excel format.
func exportExcel(w http.ResponseWriter, sheetName string, headers []string, data [][]string) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		http.Error(w, "Failed to create Excel sheet", 500)
		return
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		http.Error(w, "Failed to create header style", 500)
		return
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
	for rowIdx, row := range data {
		for colIdx, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	f.DeleteSheet("Sheet1")

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=supplier_risk_summary.xlsx")
	if err := f.Write(w); err != nil {
		http.Error(w, "Failed to write Excel file", 500)
	}
}
