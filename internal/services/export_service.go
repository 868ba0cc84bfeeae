package services

import (
	"bytes"
	"fmt"

	"carwash-backend/internal/models"
	"carwash-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ExportService renders daily summaries as PDF and XLSX documents.
type ExportService struct {
	now func() string
}

func NewExportService() *ExportService {
	return &ExportService{now: func() string { return timeutil.Now().Format(timeutil.DisplayLayout) }}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func period(s *models.DailySummary) string {
	if s.From == s.To {
		return s.From
	}
	return s.From + " to " + s.To
}

// DailyPDF renders the summary (rounded to cents) as an A4 report.
func (e *ExportService) DailyPDF(summary *models.DailySummary) ([]byte, error) {
	s := summary.Rounded()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, fmt.Sprintf("%s (%s) - Daily Summary", s.BranchName, s.BranchCode), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, "Period: "+period(s), "", 1, "C", false, 0, "")
	pdf.CellFormat(190, 6, "Generated: "+e.now(), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Totals
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Totals", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(63, 8, fmt.Sprintf("Jobs: %d", s.TotalJobs), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, fmt.Sprintf("Items: %d", s.TotalItems), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 8, "Sales: "+money(s.TotalSales), "1", 1, "C", false, 0, "")
	pdf.CellFormat(95, 8, "Company: "+money(s.CompanyTotal), "1", 0, "C", false, 0, "")
	pdf.CellFormat(95, 8, "Washers: "+money(s.WasherTotal), "1", 1, "C", false, 0, "")
	pdf.CellFormat(63, 8, "Cash: "+money(s.Payments.Cash), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, "Transfer: "+money(s.Payments.Transfer), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 8, "Unrecorded: "+money(s.Payments.Unrecorded), "1", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Item breakdown
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Service Items", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(70, 7, "Item", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(34, 7, "Earnings", "1", 0, "C", true, 0, "")
	pdf.CellFormat(33, 7, "Company", "1", 0, "C", true, 0, "")
	pdf.CellFormat(33, 7, "Washer", "1", 1, "C", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, it := range s.Items {
		pdf.CellFormat(70, 6, it.ServiceItemName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", it.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(34, 6, money(it.Earnings), "1", 0, "R", false, 0, "")
		pdf.CellFormat(33, 6, money(it.Company), "1", 0, "R", false, 0, "")
		pdf.CellFormat(33, 6, money(it.Washer), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)

	// Washers
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Washers", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(55, 7, "Washer", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Jobs", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Items", "1", 0, "C", true, 0, "")
	pdf.CellFormat(32, 7, "Sales", "1", 0, "C", true, 0, "")
	pdf.CellFormat(32, 7, "Company", "1", 0, "C", true, 0, "")
	pdf.CellFormat(31, 7, "Earned", "1", 1, "C", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, w := range s.Washers {
		pdf.CellFormat(55, 6, w.WasherName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", w.Jobs), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", w.Items), "1", 0, "C", false, 0, "")
		pdf.CellFormat(32, 6, money(w.Sales), "1", 0, "R", false, 0, "")
		pdf.CellFormat(32, 6, money(w.Company), "1", 0, "R", false, 0, "")
		pdf.CellFormat(31, 6, money(w.Washer), "1", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DailyXLSX renders the summary as a workbook with Summary, Items and
// Washers sheets. Money cells are numeric.
func (e *ExportService) DailyXLSX(summary *models.DailySummary) ([]byte, error) {
	s := summary.Rounded()

	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	rows := [][]any{
		{"Branch", s.BranchName},
		{"Code", s.BranchCode},
		{"Period", period(s)},
		{"Jobs", s.TotalJobs},
		{"Items", s.TotalItems},
		{"Total sales", s.TotalSales.InexactFloat64()},
		{"Company total", s.CompanyTotal.InexactFloat64()},
		{"Washer total", s.WasherTotal.InexactFloat64()},
		{"Cash", s.Payments.Cash.InexactFloat64()},
		{"Transfer", s.Payments.Transfer.InexactFloat64()},
		{"Unrecorded", s.Payments.Unrecorded.InexactFloat64()},
	}
	if err := writeRows(f, summarySheet, rows); err != nil {
		return nil, err
	}

	items := [][]any{{"Item", "Category", "Quantity", "Earnings", "Company", "Washer"}}
	for _, it := range s.Items {
		items = append(items, []any{
			it.ServiceItemName, string(it.Category), it.Quantity,
			it.Earnings.InexactFloat64(), it.Company.InexactFloat64(), it.Washer.InexactFloat64(),
		})
	}
	if _, err := f.NewSheet("Items"); err != nil {
		return nil, err
	}
	if err := writeRows(f, "Items", items); err != nil {
		return nil, err
	}

	washers := [][]any{{"Washer", "Jobs", "Items", "Sales", "Company", "Earned"}}
	for _, w := range s.Washers {
		washers = append(washers, []any{
			w.WasherName, w.Jobs, w.Items,
			w.Sales.InexactFloat64(), w.Company.InexactFloat64(), w.Washer.InexactFloat64(),
		})
	}
	if _, err := f.NewSheet("Washers"); err != nil {
		return nil, err
	}
	if err := writeRows(f, "Washers", washers); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
