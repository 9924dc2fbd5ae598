// Package quotepdf renders a quotation as a one-document PDF.
package quotepdf

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/mikelcalvo/quotedesk/internal/pricing"
)

// Document is everything printed on a quotation.
type Document struct {
	Number    string // empty for drafts
	Customer  string
	Company   string
	Brand     string
	Date      time.Time
	ValidTill time.Time
	Items     []pricing.LineItem
	Notes     string

	// Format prints money amounts. Two decimals when nil.
	Format func(decimal.Decimal) string
}

type Generator struct{}

func New() *Generator { return &Generator{} }

// column widths in mm, A4 portrait with 10mm margins
var columns = []struct {
	title string
	width float64
	align string
}{
	{"Description", 72, "L"},
	{"Qty", 16, "R"},
	{"Unit Price", 28, "R"},
	{"Disc %", 16, "R"},
	{"Tax %", 16, "R"},
	{"Line Total", 42, "R"},
}

func (g *Generator) Generate(doc Document) ([]byte, error) {
	if len(doc.Items) == 0 {
		return nil, errors.New("quotation has no items")
	}
	format := doc.Format
	if format == nil {
		format = func(d decimal.Decimal) string { return d.StringFixed(2) }
	}
	if doc.Date.IsZero() {
		doc.Date = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Quotation "+doc.Number), false)
	pdf.SetCreator("quotedesk", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	title := "Quotation"
	if doc.Number != "" {
		title += " " + doc.Number
	} else {
		title += " (draft)"
	}
	pdf.Cell(0, 10, tr(title))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	if doc.Company != "" {
		pdf.Cell(0, 5, tr(doc.Company))
		pdf.Ln(5)
	}
	pdf.Cell(0, 5, fmt.Sprintf("Date: %s", doc.Date.Format("2006-01-02")))
	pdf.Ln(5)
	if !doc.ValidTill.IsZero() {
		pdf.Cell(0, 5, fmt.Sprintf("Valid till: %s", doc.ValidTill.Format("2006-01-02")))
		pdf.Ln(5)
	}
	if doc.Customer != "" {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 6, tr("Customer: "+doc.Customer))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range columns {
		pdf.CellFormat(col.width, 7, col.title, "B", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, it := range doc.Items {
		row := []string{
			tr(trim(it.Description, 44)),
			it.Quantity.Value.String(),
			format(it.UnitPrice.Value),
			it.DiscountPercent.Value.String(),
			it.TaxPercent.Value.String(),
			format(it.LineTotal.Round(2)),
		}
		for i, col := range columns {
			pdf.CellFormat(col.width, 6, row[i], "", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	totals := pricing.ComputeTotals(doc.Items).Round(2)
	pdf.Ln(4)
	labelWidth := 148.0
	totalLine := func(label, value string) {
		pdf.CellFormat(labelWidth, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(42, 6, value, "", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	totalLine("Subtotal", format(totals.Subtotal))
	totalLine("Discount", "-"+format(totals.DiscountAmount))
	totalLine("Tax", format(totals.TaxAmount))
	pdf.SetFont("Helvetica", "B", 11)
	totalLine("Grand Total", format(totals.GrandTotal))

	if doc.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, tr(doc.Notes), "", "L", false)
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 8)
	footer := doc.Brand
	if footer == "" {
		footer = "Quote Desk"
	}
	pdf.Cell(0, 5, tr(fmt.Sprintf("%s - generated %s", footer, time.Now().Format(time.RFC3339))))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
