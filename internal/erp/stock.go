package erp

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockLevel is the Bin of one item in one warehouse.
type StockLevel struct {
	ItemCode     string  `json:"item_code"`
	Warehouse    string  `json:"warehouse"`
	ActualQty    float64 `json:"actual_qty"`
	ReservedQty  float64 `json:"reserved_qty"`
	OrderedQty   float64 `json:"ordered_qty"`
	ProjectedQty float64 `json:"projected_qty"`
}

// ReorderQty is what has to be requested to bring the projected quantity up
// to target. It is never negative.
func (s StockLevel) ReorderQty(target float64) float64 {
	if q := target - s.ProjectedQty; q > 0 {
		return q
	}
	return 0
}

// AvailableQty sums the actual quantity of an item across all warehouses.
// Items without a Bin (services, never received) have zero available.
func (c *Client) AvailableQty(itemCode string) (decimal.Decimal, error) {
	if itemCode == "" {
		return decimal.Zero, nil
	}

	var bins []StockLevel
	err := c.list(listQuery{
		Doctype: "Bin",
		Fields:  []string{"warehouse", "actual_qty"},
		Filters: [][]interface{}{{"item_code", "=", itemCode}},
	}, &bins)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, b := range bins {
		total = total.Add(decimal.NewFromFloat(b.ActualQty))
	}
	return total, nil
}

// LowStockItems returns the bins whose projected quantity is below
// threshold, lowest first.
func (c *Client) LowStockItems(threshold float64) ([]StockLevel, error) {
	var bins []StockLevel
	err := c.list(listQuery{
		Doctype: "Bin",
		Fields:  []string{"item_code", "warehouse", "actual_qty", "reserved_qty", "ordered_qty", "projected_qty"},
		Filters: [][]interface{}{{"projected_qty", "<", threshold}},
		OrderBy: "projected_qty asc",
	}, &bins)
	return bins, err
}

// Reorder raises one purchase Material Request that brings every level up to
// target. Levels already at or above target are left out.
func (c *Client) Reorder(levels []StockLevel, target float64) (string, error) {
	company, err := c.GetCompany()
	if err != nil {
		return "", err
	}

	schedule := time.Now().AddDate(0, 0, 7).Format("2006-01-02")

	var items []map[string]interface{}
	for _, l := range levels {
		qty := l.ReorderQty(target)
		if qty == 0 {
			continue
		}
		items = append(items, map[string]interface{}{
			"item_code":     l.ItemCode,
			"qty":           qty,
			"warehouse":     l.Warehouse,
			"schedule_date": schedule,
		})
	}
	if len(items) == 0 {
		return "", fmt.Errorf("nothing to reorder: %w", ErrNoItems)
	}

	body := map[string]interface{}{
		"material_request_type": "Purchase",
		"transaction_date":      time.Now().Format("2006-01-02"),
		"schedule_date":         schedule,
		"company":               company,
		"items":                 items,
	}

	var created struct {
		Name string `json:"name"`
	}
	if err := c.fetch("POST", "Material%20Request", body, &created); err != nil {
		return "", err
	}

	c.Logger.Info("reorder requested",
		zap.String("material_request", created.Name),
		zap.Int("items", len(items)),
		zap.Float64("target", target))
	return created.Name, nil
}

// CmdStock handles stock commands
func (c *Client) CmdStock(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: quotedesk stock <subcommand> [args...]")
		fmt.Println("Subcommands: get, low, reorder")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  quotedesk stock get LED-PANEL-60")
		fmt.Println("  quotedesk stock low --threshold=10")
		fmt.Println("  quotedesk stock reorder --target=50")
		fmt.Println("  quotedesk stock reorder LED-PANEL-60 DRIVER-40W")
		return nil
	}

	threshold := c.Config.ReorderLevel
	target := c.Config.ReorderTarget
	var rest []string
	for _, arg := range args[1:] {
		switch {
		case strings.HasPrefix(arg, "--threshold="):
			v, err := strconv.ParseFloat(strings.TrimPrefix(arg, "--threshold="), 64)
			if err != nil {
				return fmt.Errorf("invalid threshold: %s", arg)
			}
			threshold = v
		case strings.HasPrefix(arg, "--target="):
			v, err := strconv.ParseFloat(strings.TrimPrefix(arg, "--target="), 64)
			if err != nil {
				return fmt.Errorf("invalid target: %s", arg)
			}
			target = v
		default:
			rest = append(rest, arg)
		}
	}

	switch args[0] {
	case "get":
		if len(rest) < 1 {
			return fmt.Errorf("usage: quotedesk stock get <item_code>")
		}
		return c.stockGet(rest[0])
	case "low":
		return c.stockLow(threshold)
	case "reorder":
		return c.stockReorder(threshold, target, rest)
	default:
		return fmt.Errorf("unknown stock subcommand: %s", args[0])
	}
}

func (c *Client) stockGet(itemCode string) error {
	fmt.Printf("%sFetching stock for: %s%s\n", Blue, itemCode, Reset)

	var bins []StockLevel
	err := c.list(listQuery{
		Doctype: "Bin",
		Fields:  []string{"item_code", "warehouse", "actual_qty", "reserved_qty", "ordered_qty", "projected_qty"},
		Filters: [][]interface{}{{"item_code", "=", itemCode}},
	}, &bins)
	if err != nil {
		return err
	}
	if len(bins) == 0 {
		fmt.Printf("%sNo stock found for %s%s\n", Yellow, itemCode, Reset)
		return nil
	}

	fmt.Printf("\n%sStock for %s:%s\n", Cyan, itemCode, Reset)
	total := 0.0
	for _, b := range bins {
		fmt.Printf("  %s: %s%g%s (reserved: %g, ordered: %g, projected: %g)\n",
			b.Warehouse, Green, b.ActualQty, Reset, b.ReservedQty, b.OrderedQty, b.ProjectedQty)
		total += b.ActualQty
	}
	fmt.Printf("  %sTotal: %g%s\n", Yellow, total, Reset)
	return nil
}

func (c *Client) stockLow(threshold float64) error {
	fmt.Printf("%sFetching items below %g...%s\n", Blue, threshold, Reset)

	levels, err := c.LowStockItems(threshold)
	if err != nil {
		return err
	}
	if len(levels) == 0 {
		fmt.Printf("%s✓ No items below %g%s\n", Green, threshold, Reset)
		return nil
	}

	fmt.Printf("\n%sLow stock (%d):%s\n", Cyan, len(levels), Reset)
	for _, l := range levels {
		fmt.Printf("  %s @ %s: projected %s%g%s (actual %g, ordered %g)\n",
			l.ItemCode, l.Warehouse, Red, l.ProjectedQty, Reset, l.ActualQty, l.OrderedQty)
	}
	return nil
}

func (c *Client) stockReorder(threshold, target float64, only []string) error {
	if target < threshold {
		return fmt.Errorf("target (%g) must not be below threshold (%g)", target, threshold)
	}

	levels, err := c.LowStockItems(threshold)
	if err != nil {
		return err
	}
	levels = filterLevels(levels, only)

	fmt.Printf("%sRequesting %d item(s) up to %g...%s\n", Blue, len(levels), target, Reset)
	for _, l := range levels {
		fmt.Printf("  %s @ %s: +%g\n", l.ItemCode, l.Warehouse, l.ReorderQty(target))
	}

	name, err := c.Reorder(levels, target)
	if err != nil {
		return err
	}
	fmt.Printf("%s✓ Material request created: %s%s\n", Green, name, Reset)
	return nil
}

func filterLevels(levels []StockLevel, itemCodes []string) []StockLevel {
	if len(itemCodes) == 0 {
		return levels
	}
	want := make(map[string]bool, len(itemCodes))
	for _, code := range itemCodes {
		want[code] = true
	}
	var out []StockLevel
	for _, l := range levels {
		if want[l.ItemCode] {
			out = append(out, l)
		}
	}
	return out
}
