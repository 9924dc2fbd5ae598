package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mikelcalvo/quotedesk/internal/pricing"
	"github.com/mikelcalvo/quotedesk/internal/quotepdf"
)

const maxBody = 1 << 20

type lineRequest struct {
	ID              string          `json:"id"`
	ItemCode        string          `json:"item_code"`
	Description     string          `json:"description"`
	Quantity        pricing.Number  `json:"quantity"`
	UnitPrice       pricing.Number  `json:"unit_price"`
	DiscountPercent *pricing.Number `json:"discount_percent"`
	TaxPercent      *pricing.Number `json:"tax_percent"`
}

type totalsRequest struct {
	Items []lineRequest `json:"items"`
}

type pdfRequest struct {
	Customer string        `json:"customer"`
	Number   string        `json:"number"`
	Notes    string        `json:"notes"`
	Items    []lineRequest `json:"items"`
}

type lineResponse struct {
	ID        string          `json:"id"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type totalsResponse struct {
	Lines      []lineResponse      `json:"lines"`
	Totals     pricing.Totals      `json:"totals"`
	Violations []pricing.Violation `json:"violations"`
}

// lineItems turns request rows into line items. A missing discount is zero,
// a missing tax takes the configured default.
func (s *Server) lineItems(rows []lineRequest) []pricing.LineItem {
	items := make([]pricing.LineItem, 0, len(rows))
	for _, row := range rows {
		it := pricing.NewLineItem()
		if row.ID != "" {
			it.ID = row.ID
		}
		it.ItemCode = row.ItemCode
		it.Description = row.Description
		it.Quantity = row.Quantity
		it.UnitPrice = row.UnitPrice
		if row.DiscountPercent != nil {
			it.DiscountPercent = *row.DiscountPercent
		}
		if row.TaxPercent != nil {
			it.TaxPercent = *row.TaxPercent
		} else if s.cfg.DefaultTax != "" {
			it.TaxPercent = pricing.ParseNumber(s.cfg.DefaultTax)
		}
		items = append(items, it.Recalculate())
	}
	return items
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Totals prices the posted lines. Violations come back with the totals and
// turn the status into 422.
func (s *Server) Totals(w http.ResponseWriter, r *http.Request) {
	var req totalsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items := s.lineItems(req.Items)
	resp := totalsResponse{
		Lines:      make([]lineResponse, 0, len(items)),
		Totals:     pricing.ComputeTotals(items).Round(2),
		Violations: pricing.ValidateItems(items),
	}
	for _, it := range items {
		resp.Lines = append(resp.Lines, lineResponse{ID: it.ID, LineTotal: it.LineTotal.Round(2)})
	}
	if resp.Violations == nil {
		resp.Violations = []pricing.Violation{}
	}

	status := http.StatusOK
	if len(resp.Violations) > 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

// QuotationPDF renders the posted quotation as a PDF.
func (s *Server) QuotationPDF(w http.ResponseWriter, r *http.Request) {
	var req pdfRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Customer) == "" {
		writeError(w, http.StatusBadRequest, "customer is required")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "at least one item is required")
		return
	}

	items := s.lineItems(req.Items)
	if err := pricing.Validate(items); err != nil {
		var verr *pricing.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":      "invalid items",
				"violations": verr.Violations,
			})
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	now := time.Now()
	data, err := s.pdf.Generate(quotepdf.Document{
		Number:    req.Number,
		Customer:  req.Customer,
		Company:   s.cfg.Company,
		Brand:     s.cfg.Brand,
		Date:      now,
		ValidTill: now.AddDate(0, 0, 30),
		Items:     items,
		Notes:     req.Notes,
	})
	if err != nil {
		s.log.Error("pdf generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "pdf generation failed")
		return
	}

	filename := "quotation.pdf"
	if req.Number != "" {
		filename = req.Number + ".pdf"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
