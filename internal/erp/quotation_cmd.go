package erp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mikelcalvo/quotedesk/internal/pricing"
	"github.com/mikelcalvo/quotedesk/internal/quotepdf"
)

// CmdQuotation handles Quotation commands
func (c *Client) CmdQuotation(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: quotedesk quotation <subcommand> [args...]")
		fmt.Println("Subcommands: list, get, create, submit, cancel, preview, convert, pdf")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  quotedesk quotation list")
		fmt.Println("  quotedesk quotation list --customer=\"Acme\" --status=Open")
		fmt.Println("  quotedesk quotation get SAL-QTN-2025-00001")
		fmt.Println("  quotedesk quotation create \"Acme Corp\" \"2 x LED panel @ 1200\" \"Installation; 1; 500; 10\"")
		fmt.Println("  quotedesk quotation create \"Acme Corp\" --from=inquiry.pdf")
		fmt.Println("  quotedesk quotation submit SAL-QTN-2025-00001")
		fmt.Println("  quotedesk quotation preview SAL-QTN-2025-00001")
		fmt.Println("  quotedesk quotation convert SAL-QTN-2025-00001")
		fmt.Println("  quotedesk quotation pdf SAL-QTN-2025-00001 --out=quote.pdf")
		return nil
	}

	switch args[0] {
	case "list":
		return c.quotationList(parseListOptions(args[1:]))
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: quotedesk quotation get <name>")
		}
		return c.quotationGet(args[1])
	case "create":
		if len(args) < 3 {
			return fmt.Errorf("usage: quotedesk quotation create <customer> <line>... | --from=<file>")
		}
		return c.quotationCreate(args[1], args[2:])
	case "submit":
		if len(args) < 2 {
			return fmt.Errorf("usage: quotedesk quotation submit <name>")
		}
		fmt.Printf("%sSubmitting quotation: %s%s\n", Blue, args[1], Reset)
		if err := c.SubmitQuotation(args[1]); err != nil {
			return err
		}
		fmt.Printf("%s✓ Quotation submitted: %s%s\n", Green, args[1], Reset)
		return nil
	case "cancel":
		if len(args) < 2 {
			return fmt.Errorf("usage: quotedesk quotation cancel <name>")
		}
		fmt.Printf("%sCancelling quotation: %s%s\n", Blue, args[1], Reset)
		if err := c.CancelQuotation(args[1]); err != nil {
			return err
		}
		fmt.Printf("%s✓ Quotation cancelled: %s%s\n", Green, args[1], Reset)
		return nil
	case "preview":
		if len(args) < 2 {
			return fmt.Errorf("usage: quotedesk quotation preview <name>")
		}
		_, err := c.quotationPreview(args[1])
		return err
	case "convert":
		if len(args) < 2 {
			return fmt.Errorf("usage: quotedesk quotation convert <name>")
		}
		return c.quotationConvert(args[1])
	case "pdf":
		if len(args) < 2 {
			return fmt.Errorf("usage: quotedesk quotation pdf <name> [--out=file.pdf]")
		}
		out := args[1] + ".pdf"
		for _, arg := range args[2:] {
			if strings.HasPrefix(arg, "--out=") {
				out = strings.TrimPrefix(arg, "--out=")
			}
		}
		return c.quotationPDF(args[1], out)
	default:
		return fmt.Errorf("unknown quotation subcommand: %s", args[0])
	}
}

func (c *Client) quotationList(opts ListOptions) error {
	fmt.Printf("%sFetching quotations...%s\n", Blue, Reset)

	rows, err := c.ListQuotations(opts)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Printf("%sNo quotations found%s\n", Yellow, Reset)
		return nil
	}

	fmt.Printf("\n%sQuotations (%d):%s\n", Cyan, len(rows), Reset)
	for _, q := range rows {
		fmt.Printf("  %s - %s\n", q.Name, q.PartyName)
		fmt.Printf("    Date: %s | Status: %s%s%s | Total: %s\n",
			q.TransactionDate, statusColor(q.Status), q.Status, Reset, c.FormatCurrency(q.GrandTotal))
	}
	return nil
}

func (c *Client) quotationGet(name string) error {
	fmt.Printf("%sFetching quotation: %s%s\n", Blue, name, Reset)

	q, err := c.GetQuotation(name)
	if err != nil {
		return err
	}

	fmt.Printf("\n%sQuotation: %s%s\n", Cyan, q.Name, Reset)
	fmt.Printf("  Customer: %s\n", q.PartyName)
	fmt.Printf("  Date: %s\n", q.TransactionDate)
	fmt.Printf("  Valid Till: %s\n", q.ValidTill)
	fmt.Printf("  Status: %s%s%s\n", statusColor(q.Status), q.Status, Reset)

	lines := c.QuotationLines(q)
	if len(lines) > 0 {
		fmt.Printf("\n  %sItems:%s\n", Yellow, Reset)
		c.printLines(lines)
	}
	c.printTotals(pricing.ComputeTotals(lines))
	fmt.Printf("  ERP total:   %s\n", c.FormatCurrency(q.GrandTotal))
	return nil
}

func (c *Client) quotationCreate(customer string, args []string) error {
	var text []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "--from=") {
			extracted, err := c.ExtractInquiryFile(context.Background(), strings.TrimPrefix(arg, "--from="))
			if err != nil {
				return err
			}
			text = append(text, extracted)
			continue
		}
		text = append(text, arg)
	}

	parsed, err := ParseInquiry(strings.Join(text, "\n"), c.Config.DefaultTax)
	if err != nil {
		return err
	}
	if len(parsed.Skipped) > 0 {
		for _, s := range parsed.Skipped {
			fmt.Printf("  %sSkipped line %d:%s %s\n", Yellow, s.Line, Reset, s.Text)
		}
		return fmt.Errorf("%d line(s) could not be read as items", len(parsed.Skipped))
	}

	fmt.Printf("%sCreating quotation for: %s%s\n", Blue, customer, Reset)
	c.printLines(parsed.Items)
	c.printTotals(pricing.ComputeTotals(parsed.Items))

	name, err := c.CreateQuotation(customer, parsed.Items)
	if err != nil {
		var verr *pricing.ValidationError
		if errors.As(err, &verr) {
			printViolations(parsed.Items, verr)
		}
		return err
	}

	fmt.Printf("%s✓ Quotation created: %s%s\n", Green, name, Reset)
	fmt.Printf("  Status: Draft\n")
	fmt.Printf("  Use 'quotedesk quotation submit %s' to submit it\n", name)
	return nil
}

func (c *Client) quotationPreview(name string) (*ConversionPreview, error) {
	fmt.Printf("%sPreviewing conversion of: %s%s\n", Blue, name, Reset)

	p, err := c.PreviewConversion(name)
	if err != nil {
		return nil, err
	}

	fmt.Printf("\n%sSales order from %s (%s):%s\n", Cyan, p.Quotation.Name, p.Quotation.PartyName, Reset)
	for _, l := range p.Lines {
		stock := fmt.Sprintf("%sin stock %s%s", Green, l.Available.String(), Reset)
		if l.Shortfall.IsPositive() {
			stock = fmt.Sprintf("%sshort %s (in stock %s)%s", Red, l.Shortfall.String(), l.Available.String(), Reset)
		}
		fmt.Printf("  - %s %s: %s x %s = %s | %s\n",
			l.Item.ItemCode, truncate(l.Item.Description, 30), l.Item.Quantity.Raw,
			c.FormatAmount(l.Item.UnitPrice.Value), c.FormatAmount(l.Breakdown.Total.Round(2)), stock)
	}
	c.printTotals(p.Totals)

	if !p.Submitted() {
		fmt.Printf("%s! Quotation is not submitted; submit it before converting%s\n", Yellow, Reset)
	}
	if p.HasShortfall() {
		fmt.Printf("%s! Some lines are not fully in stock%s\n", Yellow, Reset)
	}
	return p, nil
}

func (c *Client) quotationConvert(name string) error {
	p, err := c.quotationPreview(name)
	if err != nil {
		return err
	}
	if !p.Submitted() {
		return fmt.Errorf("quotation %s: %w", name, ErrNotSubmitted)
	}

	soName, err := c.ConvertQuotation(name)
	if err != nil {
		return err
	}
	fmt.Printf("%s✓ Sales order created: %s (from %s)%s\n", Green, soName, name, Reset)
	return nil
}

func (c *Client) quotationPDF(name, out string) error {
	fmt.Printf("%sRendering quotation: %s%s\n", Blue, name, Reset)

	q, err := c.GetQuotation(name)
	if err != nil {
		return err
	}
	c.GetCurrency()

	doc := quotepdf.Document{
		Number:   q.Name,
		Customer: q.PartyName,
		Company:  q.Company,
		Brand:    c.Config.Brand,
		Items:    c.QuotationLines(q),
		Format:   c.FormatAmount,
	}
	if d, err := time.Parse("2006-01-02", q.TransactionDate); err == nil {
		doc.Date = d
	}
	if d, err := time.Parse("2006-01-02", q.ValidTill); err == nil {
		doc.ValidTill = d
	}

	data, err := quotepdf.New().Generate(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", out, err)
	}
	fmt.Printf("%s✓ Written: %s%s\n", Green, out, Reset)
	return nil
}

func (c *Client) printLines(items []pricing.LineItem) {
	for i, it := range items {
		code := it.ItemCode
		if code == "" {
			code = "-"
		}
		fmt.Printf("    %d. %s %s: %s x %s, disc %s%%, tax %s%% = %s\n",
			i+1, code, it.Description, it.Quantity.Raw, it.UnitPrice.Raw,
			it.DiscountPercent.Raw, it.TaxPercent.Raw, c.FormatAmount(it.LineTotal.Round(2)))
	}
}

func (c *Client) printTotals(t pricing.Totals) {
	t = t.Round(2)
	fmt.Printf("\n  Subtotal:    %s\n", c.FormatAmount(t.Subtotal))
	fmt.Printf("  Discount:    -%s\n", c.FormatAmount(t.DiscountAmount))
	fmt.Printf("  Tax:         %s\n", c.FormatAmount(t.TaxAmount))
	fmt.Printf("  %sGrand Total: %s%s\n", Green, c.FormatAmount(t.GrandTotal), Reset)
}

// printViolations lists every violation under the line it belongs to.
func printViolations(items []pricing.LineItem, verr *pricing.ValidationError) {
	fmt.Printf("%s✗ %d problem(s):%s\n", Red, len(verr.Violations), Reset)
	for i, it := range items {
		for _, v := range verr.ForItem(it.ID) {
			fmt.Printf("    line %d (%s): %s\n", i+1, it.Description, v.Message)
		}
	}
}
