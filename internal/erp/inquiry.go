package erp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mikelcalvo/quotedesk/internal/pricing"
)

const maxInquiryText = 200000

// ErrInquiryTooLong is returned for documents whose text exceeds
// maxInquiryText. They are refused whole rather than cut mid-line.
var ErrInquiryTooLong = fmt.Errorf("inquiry text longer than %d bytes", maxInquiryText)

// SkippedLine is an inquiry line that did not look like an item.
type SkippedLine struct {
	Line int
	Text string
}

// InquiryResult is a customer inquiry turned into draft quotation lines.
type InquiryResult struct {
	Items   []pricing.LineItem
	Skipped []SkippedLine
}

var (
	// 2 x LED panel @ 1200, optionally followed by "-10%" or "disc 10%".
	inquiryTimesLine = regexp.MustCompile(`(?i)^(\d[\d.,]*)\s*(?:x|×|\*|pcs?\.?|units?)\s+(.+?)\s*@\s*([^\s%]+)(?:\s*(?:-|disc(?:ount)?\.?)\s*(\d[\d.,]*)\s*%)?$`)
	inquiryBullet    = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)
	nonNumeric       = regexp.MustCompile(`[^\d.,\-]`)
)

// ExtractInquiry returns the text of an inquiry document. Plain text is used
// as is; anything else is sent to Apache Tika at TIKA_URL.
func (c *Client) ExtractInquiry(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if isPlainText(filename, contentType) {
		if len(data) > maxInquiryText {
			return "", fmt.Errorf("%s: %w", filepath.Base(filename), ErrInquiryTooLong)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if strings.TrimSpace(c.Config.TikaURL) == "" {
		return "", fmt.Errorf("cannot read %s: TIKA_URL is not configured", filepath.Base(filename))
	}
	urlStr := strings.TrimRight(c.Config.TikaURL, "/") + "/tika"
	resp, methodUsed, err := c.callTika(ctx, urlStr, contentType, data)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	c.Logger.Debug("tika ok", zap.String("method", methodUsed), zap.Int("status", resp.StatusCode))

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxInquiryText+1))
	if err != nil {
		return "", err
	}
	if len(text) > maxInquiryText {
		return "", fmt.Errorf("%s: %w", filepath.Base(filename), ErrInquiryTooLong)
	}
	clean := strings.TrimSpace(string(text))
	if clean == "" {
		return "", fmt.Errorf("empty document text")
	}
	return clean, nil
}

// ExtractInquiryFile reads path and extracts its text.
func (c *Client) ExtractInquiryFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read inquiry: %w", err)
	}
	return c.ExtractInquiry(ctx, path, "", data)
}

func (c *Client) callTika(ctx context.Context, urlStr, contentType string, data []byte) (*http.Response, string, error) {
	methods := []string{http.MethodPut, http.MethodPost}
	var lastErr error
	for _, method := range methods {
		req, err := http.NewRequestWithContext(ctx, method, urlStr, bytes.NewReader(data))
		if err != nil {
			return nil, "", err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "text/plain")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			c.Logger.Warn("tika request failed", zap.String("method", method), zap.Error(err))
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusMethodNotAllowed {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			c.Logger.Debug("tika method not allowed", zap.String("method", method), zap.String("body", strings.TrimSpace(string(msg))))
			resp.Body.Close()
			lastErr = fmt.Errorf("tika status 405")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			return nil, method, fmt.Errorf("tika status %d (%s): %s", resp.StatusCode, method, strings.TrimSpace(string(msg)))
		}
		return resp, method, nil
	}
	if lastErr != nil {
		return nil, "", lastErr
	}
	return nil, "", fmt.Errorf("tika request failed")
}

func isPlainText(filename, contentType string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".csv", ".tsv", ".md":
		return true
	}
	return strings.HasPrefix(strings.ToLower(contentType), "text/plain")
}

// ParseInquiry turns inquiry text into draft line items. Recognised lines:
//
//	2 x LED panel @ 1200
//	2 x LED panel @ 1200 -10%
//	LED panel; 2; 1200
//	LED panel | 2 | 1200 | 10
//
// Delimited lines are description, quantity, unit price and optionally
// discount and tax percent. Blank lines and lines starting with # are
// ignored; every other line that does not match is reported in Skipped.
// taxPercent is applied to lines that do not carry their own. A line too long
// to scan fails the whole parse so no line is dropped unreported.
func ParseInquiry(text, taxPercent string) (InquiryResult, error) {
	var res InquiryResult

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxInquiryText)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		if it, ok := parseInquiryLine(raw, taxPercent); ok {
			res.Items = append(res.Items, it)
			continue
		}
		res.Skipped = append(res.Skipped, SkippedLine{Line: lineNo, Text: raw})
	}
	if err := scanner.Err(); err != nil {
		return InquiryResult{}, fmt.Errorf("inquiry line %d: %w", lineNo+1, err)
	}
	return res, nil
}

func parseInquiryLine(line, taxPercent string) (pricing.LineItem, bool) {
	line = inquiryBullet.ReplaceAllString(line, "")

	if m := inquiryTimesLine.FindStringSubmatch(line); m != nil {
		qty, okQty := normalizeNumber(m[1])
		price, okPrice := normalizeNumber(m[3])
		if !okQty || !okPrice {
			return pricing.LineItem{}, false
		}
		disc := ""
		if m[4] != "" {
			var ok bool
			if disc, ok = normalizeNumber(m[4]); !ok {
				return pricing.LineItem{}, false
			}
		}
		return pricing.MakeLineItem(strings.TrimSpace(m[2]), qty, price, disc, taxPercent), true
	}

	sep := ""
	for _, s := range []string{"|", ";", "\t"} {
		if strings.Contains(line, s) {
			sep = s
			break
		}
	}
	if sep == "" {
		return pricing.LineItem{}, false
	}

	var fields []string
	for _, f := range strings.Split(strings.Trim(line, sep+" "), sep) {
		fields = append(fields, strings.TrimSpace(f))
	}
	if len(fields) < 3 || len(fields) > 5 || fields[0] == "" {
		return pricing.LineItem{}, false
	}

	nums := make([]string, 0, 4)
	for _, f := range fields[1:] {
		n, ok := normalizeNumber(f)
		if !ok {
			return pricing.LineItem{}, false
		}
		nums = append(nums, n)
	}

	disc, tax := "", taxPercent
	if len(nums) > 2 {
		disc = nums[2]
	}
	if len(nums) > 3 {
		tax = nums[3]
	}
	return pricing.MakeLineItem(fields[0], nums[0], nums[1], disc, tax), true
}

// normalizeNumber reads numbers the way people type them in emails:
// currency symbols, spaces and thousands separators are dropped, and the
// decimal separator may be a comma.
func normalizeNumber(s string) (string, bool) {
	s = nonNumeric.ReplaceAllString(strings.TrimSpace(s), "")
	if s == "" || !strings.ContainsAny(s, "0123456789") {
		return "", false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	if !pricing.ParseNumber(s).Valid {
		return "", false
	}
	return s, true
}
