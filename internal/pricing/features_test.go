package pricing_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"github.com/mikelcalvo/quotedesk/internal/pricing"
)

type pricingTestContext struct {
	items      []pricing.LineItem
	totals     pricing.Totals
	violations []pricing.Violation
}

func (c *pricingTestContext) reset() {
	c.items = nil
	c.totals = pricing.Totals{}
	c.violations = nil
}

func (c *pricingTestContext) lookup(description string) (pricing.LineItem, error) {
	for _, it := range c.items {
		if it.Description == description {
			return it, nil
		}
	}
	return pricing.LineItem{}, fmt.Errorf("no line %q", description)
}

func (c *pricingTestContext) aLine(description, qty, price, discount, tax string) error {
	c.items = append(c.items, pricing.MakeLineItem(description, qty, price, discount, tax))
	return nil
}

func (c *pricingTestContext) iSetFieldOfLineTo(field, description, value string) error {
	it, err := c.lookup(description)
	if err != nil {
		return err
	}
	c.items = pricing.Apply(c.items, it.ID, pricing.Field(field), value)
	return nil
}

func (c *pricingTestContext) iComputeTheTotals() error {
	c.totals = pricing.ComputeTotals(c.items)
	return nil
}

func (c *pricingTestContext) iValidateTheLines() error {
	c.violations = pricing.ValidateItems(c.items)
	return nil
}

func expectDecimal(what, want string, got decimal.Decimal) error {
	w, err := decimal.NewFromString(want)
	if err != nil {
		return err
	}
	if !w.Equal(got) {
		return fmt.Errorf("expected %s %s, got %s", what, want, got)
	}
	return nil
}

func (c *pricingTestContext) theLineTotals(description, want string) error {
	it, err := c.lookup(description)
	if err != nil {
		return err
	}
	return expectDecimal("line total", want, it.LineTotal)
}

func (c *pricingTestContext) theSubtotalIs(want string) error {
	return expectDecimal("subtotal", want, c.totals.Subtotal)
}

func (c *pricingTestContext) theDiscountAmountIs(want string) error {
	return expectDecimal("discount amount", want, c.totals.DiscountAmount)
}

func (c *pricingTestContext) theTaxAmountIs(want string) error {
	return expectDecimal("tax amount", want, c.totals.TaxAmount)
}

func (c *pricingTestContext) theGrandTotalIs(want string) error {
	return expectDecimal("grand total", want, c.totals.GrandTotal)
}

func (c *pricingTestContext) thereAreViolations(n int) error {
	if len(c.violations) != n {
		return fmt.Errorf("expected %d violations, got %d: %v", n, len(c.violations), c.violations)
	}
	return nil
}

func (c *pricingTestContext) theViolationsInclude(msg string) error {
	for _, v := range c.violations {
		if v.Message == msg {
			return nil
		}
	}
	return fmt.Errorf("no violation %q in %v", msg, c.violations)
}

func (c *pricingTestContext) theFieldIsFlagged(field string) error {
	for _, v := range c.violations {
		if v.Field == pricing.Field(field) {
			return nil
		}
	}
	return fmt.Errorf("field %q not flagged in %v", field, c.violations)
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &pricingTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a line "([^"]*)" with quantity "([^"]*)", unit price "([^"]*)", discount "([^"]*)" and tax "([^"]*)"$`, tc.aLine)

	// When steps
	ctx.Step(`^I set "([^"]*)" of line "([^"]*)" to "([^"]*)"$`, tc.iSetFieldOfLineTo)
	ctx.Step(`^I compute the totals$`, tc.iComputeTheTotals)
	ctx.Step(`^I validate the lines$`, tc.iValidateTheLines)

	// Then steps
	ctx.Step(`^the line "([^"]*)" totals "([^"]*)"$`, tc.theLineTotals)
	ctx.Step(`^the subtotal is "([^"]*)"$`, tc.theSubtotalIs)
	ctx.Step(`^the discount amount is "([^"]*)"$`, tc.theDiscountAmountIs)
	ctx.Step(`^the tax amount is "([^"]*)"$`, tc.theTaxAmountIs)
	ctx.Step(`^the grand total is "([^"]*)"$`, tc.theGrandTotalIs)
	ctx.Step(`^there are (\d+) violations$`, tc.thereAreViolations)
	ctx.Step(`^the violations include "([^"]*)"$`, tc.theViolationsInclude)
	ctx.Step(`^the field "([^"]*)" is flagged$`, tc.theFieldIsFlagged)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/pricing.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
