package pricing

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTaxPercent is the jurisdiction default applied to new lines.
const DefaultTaxPercent = "18"

// Field names a single editable property of a line item.
type Field string

const (
	FieldItemCode        Field = "item_code"
	FieldDescription     Field = "description"
	FieldQuantity        Field = "quantity"
	FieldUnitPrice       Field = "unit_price"
	FieldDiscountPercent Field = "discount_percent"
	FieldTaxPercent      Field = "tax_percent"
)

// Fields lists the editable fields in the order the editors show them.
var Fields = []Field{
	FieldItemCode,
	FieldDescription,
	FieldQuantity,
	FieldUnitPrice,
	FieldDiscountPercent,
	FieldTaxPercent,
}

// Label returns a human readable name for the field.
func (f Field) Label() string {
	switch f {
	case FieldItemCode:
		return "Item Code"
	case FieldDescription:
		return "Description"
	case FieldQuantity:
		return "Qty"
	case FieldUnitPrice:
		return "Unit Price"
	case FieldDiscountPercent:
		return "Disc %"
	case FieldTaxPercent:
		return "Tax %"
	}
	return string(f)
}

// name is the field as it reads inside a message.
func (f Field) name() string {
	return strings.ReplaceAll(string(f), "_", " ")
}

// LineItem is one row of a quotation being composed.
//
// LineTotal is derived from Quantity, UnitPrice, DiscountPercent and
// TaxPercent. It is only ever written by Recalculate, which every editing
// operation in this package calls.
type LineItem struct {
	ID              string
	ItemCode        string
	Description     string
	Quantity        Number
	UnitPrice       Number
	DiscountPercent Number
	TaxPercent      Number
	LineTotal       decimal.Decimal
}

// NewLineItem returns an empty row with a fresh id and the default
// discount and tax.
func NewLineItem() LineItem {
	return LineItem{
		ID:              uuid.NewString(),
		DiscountPercent: ParseNumber("0"),
		TaxPercent:      ParseNumber(DefaultTaxPercent),
	}
}

// MakeLineItem builds a complete row from text input, the way an inquiry
// import or a CLI argument produces one.
func MakeLineItem(description, quantity, unitPrice, discountPercent, taxPercent string) LineItem {
	it := NewLineItem()
	it.Description = description
	it.Quantity = ParseNumber(quantity)
	it.UnitPrice = ParseNumber(unitPrice)
	if discountPercent != "" {
		it.DiscountPercent = ParseNumber(discountPercent)
	}
	if taxPercent != "" {
		it.TaxPercent = ParseNumber(taxPercent)
	}
	return it.Recalculate()
}

// Recalculate returns a copy of the item with LineTotal brought up to date.
func (it LineItem) Recalculate() LineItem {
	it.LineTotal = ComputeLineTotal(it)
	return it
}

// Get returns the text of a field as the user would see it in an editor.
func (it LineItem) Get(f Field) string {
	switch f {
	case FieldItemCode:
		return it.ItemCode
	case FieldDescription:
		return it.Description
	case FieldQuantity:
		return it.Quantity.Raw
	case FieldUnitPrice:
		return it.UnitPrice.Raw
	case FieldDiscountPercent:
		return it.DiscountPercent.Raw
	case FieldTaxPercent:
		return it.TaxPercent.Raw
	}
	return ""
}

func (it LineItem) set(f Field, value string) (LineItem, bool) {
	switch f {
	case FieldItemCode:
		it.ItemCode = value
	case FieldDescription:
		it.Description = value
	case FieldQuantity:
		it.Quantity = ParseNumber(value)
	case FieldUnitPrice:
		it.UnitPrice = ParseNumber(value)
	case FieldDiscountPercent:
		it.DiscountPercent = ParseNumber(value)
	case FieldTaxPercent:
		it.TaxPercent = ParseNumber(value)
	default:
		return it, false
	}
	return it.Recalculate(), true
}
