package erp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mikelcalvo/quotedesk/internal/pricing"
)

// CmdPrice prices lines offline, without talking to the ERP.
func CmdPrice(args []string, taxPercent string) error {
	if len(args) == 0 {
		fmt.Println("Usage: quotedesk price <line>...")
		fmt.Println()
		fmt.Println("Lines use the inquiry formats:")
		fmt.Println("  quotedesk price \"2 x LED panel @ 1200\"")
		fmt.Println("  quotedesk price \"Installation; 1; 500; 10\" \"Cable | 30 | 2.5 | 0 | 18\"")
		return nil
	}
	if taxPercent == "" {
		taxPercent = pricing.DefaultTaxPercent
	}

	parsed, err := ParseInquiry(strings.Join(args, "\n"), taxPercent)
	if err != nil {
		return err
	}
	for _, s := range parsed.Skipped {
		fmt.Printf("%sSkipped:%s %s\n", Yellow, Reset, s.Text)
	}
	if len(parsed.Items) == 0 {
		return fmt.Errorf("nothing to price: %w", ErrNoItems)
	}

	cur := defaultCurrency
	for i, it := range parsed.Items {
		b := pricing.Price(it).Round(2)
		fmt.Printf("\n%s%d. %s%s\n", Cyan, i+1, it.Description, Reset)
		fmt.Printf("   %s x %s\n", it.Quantity.Raw, it.UnitPrice.Raw)
		fmt.Printf("   Base:      %s\n", cur.Format(b.Base))
		fmt.Printf("   Discount:  -%s (%s%%)\n", cur.Format(b.Discount), it.DiscountPercent.Raw)
		fmt.Printf("   Taxable:   %s\n", cur.Format(b.Taxable))
		fmt.Printf("   Tax:       %s (%s%%)\n", cur.Format(b.Tax), it.TaxPercent.Raw)
		fmt.Printf("   %sTotal:     %s%s\n", Green, cur.Format(b.Total), Reset)
	}

	t := pricing.ComputeTotals(parsed.Items).Round(2)
	fmt.Printf("\n%sTotals%s\n", Yellow, Reset)
	fmt.Printf("  Subtotal:    %s\n", cur.Format(t.Subtotal))
	fmt.Printf("  Discount:    -%s\n", cur.Format(t.DiscountAmount))
	fmt.Printf("  Tax:         %s\n", cur.Format(t.TaxAmount))
	fmt.Printf("  %sGrand Total: %s%s\n", Green, cur.Format(t.GrandTotal), Reset)

	if err := pricing.Validate(parsed.Items); err != nil {
		var verr *pricing.ValidationError
		if errors.As(err, &verr) {
			printViolations(parsed.Items, verr)
		}
		return err
	}
	return nil
}

// CmdInquiry handles inquiry commands
func (c *Client) CmdInquiry(args []string) error {
	if len(args) < 2 || args[0] != "parse" {
		fmt.Println("Usage: quotedesk inquiry parse <file>")
		fmt.Println()
		fmt.Println("Reads a customer inquiry (text, PDF, Word... through Apache Tika)")
		fmt.Println("and prints the draft quotation lines found in it.")
		return nil
	}

	fmt.Printf("%sReading inquiry: %s%s\n", Blue, args[1], Reset)
	text, err := c.ExtractInquiryFile(context.Background(), args[1])
	if err != nil {
		return err
	}

	parsed, err := ParseInquiry(text, c.Config.DefaultTax)
	if err != nil {
		return err
	}
	if len(parsed.Items) == 0 {
		fmt.Printf("%sNo item lines found%s\n", Yellow, Reset)
	} else {
		fmt.Printf("\n%sDraft lines (%d):%s\n", Cyan, len(parsed.Items), Reset)
		c.printLines(parsed.Items)
		c.printTotals(pricing.ComputeTotals(parsed.Items))
	}

	if len(parsed.Skipped) > 0 {
		fmt.Printf("\n%sSkipped (%d):%s\n", Yellow, len(parsed.Skipped), Reset)
		for _, s := range parsed.Skipped {
			fmt.Printf("  %d: %s\n", s.Line, s.Text)
		}
	}
	return nil
}
