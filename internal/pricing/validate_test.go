package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(vs []Violation) []Field {
	out := make([]Field, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Field)
	}
	return out
}

func TestValidateItems_Valid(t *testing.T) {
	items := []LineItem{
		MakeLineItem("Inverter", "2", "1200", "0", "18"),
		MakeLineItem("Free sample", "1", "0", "", ""),
	}
	assert.Empty(t, ValidateItems(items))
	assert.NoError(t, Validate(items))
}

func TestValidateItems_EmptyDescriptionAndZeroQuantity(t *testing.T) {
	it := MakeLineItem("", "0", "10", "0", "18")

	vs := ValidateItems([]LineItem{it})
	require.Len(t, vs, 2)
	for _, v := range vs {
		assert.Equal(t, it.ID, v.ItemID)
	}
	assert.ElementsMatch(t, []Field{FieldDescription, FieldQuantity}, fieldsOf(vs))
}

func TestValidateItems_CollectsAcrossItems(t *testing.T) {
	good := MakeLineItem("ok", "1", "1", "0", "18")
	bad1 := MakeLineItem("   ", "-1", "5", "0", "18")
	bad2 := MakeLineItem("neg price", "1", "-0.01", "0", "18")

	vs := ValidateItems([]LineItem{bad1, good, bad2})
	require.Len(t, vs, 3)
	assert.Equal(t, bad1.ID, vs[0].ItemID)
	assert.Equal(t, bad1.ID, vs[1].ItemID)
	assert.Equal(t, bad2.ID, vs[2].ItemID)
	assert.Equal(t, FieldUnitPrice, vs[2].Field)
}

func TestValidateItems_NonNumericFields(t *testing.T) {
	it := MakeLineItem("Panel", "two", "1,200", "ten", "x")

	vs := ValidateItems([]LineItem{it})
	assert.ElementsMatch(t,
		[]Field{FieldQuantity, FieldUnitPrice, FieldDiscountPercent, FieldTaxPercent},
		fieldsOf(vs))
	assert.Contains(t, vs[0].Message, `"two"`)
}

func TestValidateItems_EmptyNumericIsRequired(t *testing.T) {
	it := NewLineItem()
	it.Description = "Panel"

	vs := ValidateItems([]LineItem{it})
	require.Len(t, vs, 2)
	assert.Equal(t, "quantity is required", vs[0].Message)
	assert.Equal(t, "unit price is required", vs[1].Message)
}

func TestValidateItems_PercentRange(t *testing.T) {
	it := MakeLineItem("Panel", "1", "10", "101", "-1")

	vs := ValidateItems([]LineItem{it})
	require.Len(t, vs, 2)
	assert.Equal(t, "discount percent must be between 0 and 100", vs[0].Message)
	assert.Equal(t, "tax percent must be between 0 and 100", vs[1].Message)
}

func TestValidate_ReturnsValidationError(t *testing.T) {
	it := MakeLineItem("", "1", "10", "0", "18")

	err := Validate([]LineItem{it})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.ForItem(it.ID), 1)
	assert.Empty(t, verr.ForItem("other"))
	assert.Contains(t, err.Error(), "description is required")
}

func TestValidateItems_OutOfRangeNumbers(t *testing.T) {
	it := MakeLineItem("Panel", "1e2000000000", "1e2000000000", "1e-2147483647", "18")

	vs := ValidateItems([]LineItem{it})
	require.Len(t, vs, 3)
	assert.Equal(t, []Field{FieldQuantity, FieldUnitPrice, FieldDiscountPercent}, fieldsOf(vs))
	assert.Equal(t, `quantity is out of range, got "1e2000000000"`, vs[0].Message)
	assert.Equal(t, `discount percent is out of range, got "1e-2147483647"`, vs[2].Message)

	// out of range values never reach the arithmetic
	assert.True(t, ComputeLineTotal(it).IsZero())
}
