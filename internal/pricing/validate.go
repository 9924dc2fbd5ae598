package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Violation is one problem with one field of one line item.
type Violation struct {
	ItemID  string `json:"item_id"`
	Field   Field  `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.ItemID, v.Message)
}

// ValidationError carries every violation found in a list of items.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.String())
	}
	return fmt.Sprintf("validation failed (%d): %s", len(e.Violations), strings.Join(msgs, "; "))
}

// ForItem returns the violations reported for a single item.
func (e *ValidationError) ForItem(id string) []Violation {
	var out []Violation
	for _, v := range e.Violations {
		if v.ItemID == id {
			out = append(out, v)
		}
	}
	return out
}

// ValidateItems checks every item and returns all violations, in item order.
// An empty result means the list can be submitted.
func ValidateItems(items []LineItem) []Violation {
	var out []Violation
	for _, it := range items {
		out = append(out, validateItem(it)...)
	}
	return out
}

// Validate is ValidateItems as an error: nil when valid, otherwise a
// *ValidationError.
func Validate(items []LineItem) error {
	if vs := ValidateItems(items); len(vs) > 0 {
		return &ValidationError{Violations: vs}
	}
	return nil
}

func validateItem(it LineItem) []Violation {
	var out []Violation
	add := func(f Field, msg string) {
		out = append(out, Violation{ItemID: it.ID, Field: f, Message: msg})
	}

	if strings.TrimSpace(it.Description) == "" {
		add(FieldDescription, "description is required")
	}

	switch {
	case !it.Quantity.Valid:
		add(FieldQuantity, notANumber(FieldQuantity, it.Quantity))
	case !it.Quantity.Value.IsPositive():
		add(FieldQuantity, "quantity must be greater than zero")
	}

	switch {
	case !it.UnitPrice.Valid:
		add(FieldUnitPrice, notANumber(FieldUnitPrice, it.UnitPrice))
	case it.UnitPrice.Value.IsNegative():
		add(FieldUnitPrice, "unit price must not be negative")
	}

	checkPercent := func(f Field, n Number) {
		switch {
		case !n.Valid:
			add(f, notANumber(f, n))
		case n.Value.IsNegative() || n.Value.GreaterThan(hundred):
			add(f, fmt.Sprintf("%s must be between 0 and 100", f.name()))
		}
	}
	checkPercent(FieldDiscountPercent, it.DiscountPercent)
	checkPercent(FieldTaxPercent, it.TaxPercent)

	return out
}

func notANumber(f Field, n Number) string {
	if strings.TrimSpace(n.Raw) == "" {
		return fmt.Sprintf("%s is required", f.name())
	}
	if outOfRange(n.Raw) {
		return fmt.Sprintf("%s is out of range, got %q", f.name(), n.Raw)
	}
	return fmt.Sprintf("%s must be a number, got %q", f.name(), n.Raw)
}
