package erp

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// ReportData holds all dashboard metrics
type ReportData struct {
	// Quotations
	DraftQuotations    int
	OpenQuotations     int
	OpenQuotationValue float64
	TopCustomers       []CustomerStat

	// Orders and billing
	PendingSOs     int
	PendingSOValue float64
	UnpaidInvoices int
	UnpaidValue    float64

	// Stock
	LowStockItems int

	TotalCustomers int

	// Errors (for partial data display)
	Errors []string
}

// CustomerStat holds open quotation value per customer
type CustomerStat struct {
	Name       string
	Quotations int
	Value      float64
}

// LoadDashboard fetches every dashboard metric concurrently. A failing
// source adds a warning to Errors instead of failing the whole dashboard.
func (c *Client) LoadDashboard() *ReportData {
	var wg sync.WaitGroup
	var mu sync.Mutex
	data := &ReportData{}

	wg.Add(4)
	go func() {
		defer wg.Done()
		c.fetchQuotationMetrics(data, &mu)
	}()
	go func() {
		defer wg.Done()
		c.fetchOrderMetrics(data, &mu)
	}()
	go func() {
		defer wg.Done()
		c.fetchStockMetrics(data, &mu)
	}()
	go func() {
		defer wg.Done()
		c.fetchCustomerMetrics(data, &mu)
	}()
	wg.Wait()

	sort.Strings(data.Errors)
	return data
}

func (c *Client) fetchQuotationMetrics(data *ReportData, mu *sync.Mutex) {
	var rows []QuotationSummary
	err := c.list(listQuery{
		Doctype: "Quotation",
		Fields:  []string{"name", "party_name", "status", "grand_total", "docstatus"},
		Filters: [][]interface{}{{"docstatus", "<", 2}, {"status", "in", []string{"Draft", "Open", "Replied"}}},
	}, &rows)

	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		data.Errors = append(data.Errors, "Failed to fetch quotations")
		return
	}

	byCustomer := map[string]*CustomerStat{}
	for _, q := range rows {
		if q.DocStatus == 0 {
			data.DraftQuotations++
			continue
		}
		data.OpenQuotations++
		data.OpenQuotationValue += q.GrandTotal

		stat, ok := byCustomer[q.PartyName]
		if !ok {
			stat = &CustomerStat{Name: q.PartyName}
			byCustomer[q.PartyName] = stat
		}
		stat.Quotations++
		stat.Value += q.GrandTotal
	}
	data.TopCustomers = topCustomers(byCustomer, 5)
}

func topCustomers(byCustomer map[string]*CustomerStat, n int) []CustomerStat {
	stats := make([]CustomerStat, 0, len(byCustomer))
	for _, s := range byCustomer {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Value != stats[j].Value {
			return stats[i].Value > stats[j].Value
		}
		return stats[i].Name < stats[j].Name
	})
	if len(stats) > n {
		stats = stats[:n]
	}
	return stats
}

func (c *Client) fetchOrderMetrics(data *ReportData, mu *sync.Mutex) {
	var orders []SalesOrderSummary
	errSO := c.list(listQuery{
		Doctype: "Sales Order",
		Fields:  []string{"name", "grand_total", "per_billed"},
		Filters: [][]interface{}{{"docstatus", "=", 1}, {"per_billed", "<", 100}, {"status", "!=", "Closed"}},
	}, &orders)

	var invoices []SalesInvoiceSummary
	errSI := c.list(listQuery{
		Doctype: "Sales Invoice",
		Fields:  []string{"name", "outstanding_amount"},
		Filters: [][]interface{}{{"docstatus", "=", 1}, {"outstanding_amount", ">", 0}},
	}, &invoices)

	mu.Lock()
	defer mu.Unlock()
	if errSO != nil {
		data.Errors = append(data.Errors, "Failed to fetch sales orders")
	} else {
		data.PendingSOs = len(orders)
		for _, so := range orders {
			data.PendingSOValue += so.GrandTotal
		}
	}
	if errSI != nil {
		data.Errors = append(data.Errors, "Failed to fetch sales invoices")
	} else {
		data.UnpaidInvoices = len(invoices)
		for _, si := range invoices {
			data.UnpaidValue += si.OutstandingAmount
		}
	}
}

func (c *Client) fetchStockMetrics(data *ReportData, mu *sync.Mutex) {
	levels, err := c.LowStockItems(c.Config.ReorderLevel)

	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		data.Errors = append(data.Errors, "Failed to fetch stock levels")
		return
	}
	data.LowStockItems = len(levels)
}

func (c *Client) fetchCustomerMetrics(data *ReportData, mu *sync.Mutex) {
	var customers []struct {
		Name string `json:"name"`
	}
	err := c.list(listQuery{
		Doctype: "Customer",
		Fields:  []string{"name"},
		Filters: [][]interface{}{{"disabled", "=", 0}},
	}, &customers)

	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		data.Errors = append(data.Errors, "Failed to fetch customers")
		return
	}
	data.TotalCustomers = len(customers)
}

// CmdReport prints the dashboard
func (c *Client) CmdReport(args []string) error {
	fmt.Printf("%sLoading dashboard...%s\n", Blue, Reset)

	c.GetCurrency()
	data := c.LoadDashboard()

	fmt.Printf("\n%s=== %s ===%s\n", Cyan, c.Config.Brand, Reset)

	fmt.Printf("\n%sQUOTATIONS%s\n", Yellow, Reset)
	fmt.Printf("  Drafts:             %d\n", data.DraftQuotations)
	fmt.Printf("  Open:               %d (%s)\n", data.OpenQuotations, c.FormatCurrency(data.OpenQuotationValue))
	if len(data.TopCustomers) > 0 {
		fmt.Printf("  Top customers:\n")
		for i, s := range data.TopCustomers {
			fmt.Printf("    %d. %-25s %3d  %s\n", i+1, truncate(s.Name, 22), s.Quotations, c.FormatCurrency(s.Value))
		}
	}

	fmt.Printf("\n%sORDERS AND BILLING%s\n", Yellow, Reset)
	fmt.Printf("  Orders to bill:     %d (%s)\n", data.PendingSOs, c.FormatCurrency(data.PendingSOValue))
	if data.UnpaidInvoices > 0 {
		fmt.Printf("  Unpaid invoices:    %s%d (%s)%s\n", Red, data.UnpaidInvoices, c.FormatCurrency(data.UnpaidValue), Reset)
	} else {
		fmt.Printf("  Unpaid invoices:    0\n")
	}

	fmt.Printf("\n%sSTOCK%s\n", Yellow, Reset)
	if data.LowStockItems > 0 {
		fmt.Printf("  Below %g:           %s%d%s\n", c.Config.ReorderLevel, Red, data.LowStockItems, Reset)
	} else {
		fmt.Printf("  Below %g:           0\n", c.Config.ReorderLevel)
	}
	fmt.Printf("  Customers:          %d\n", data.TotalCustomers)

	fmt.Printf("\nUpdated: %s | Mode: %s\n", time.Now().Format("2006-01-02 15:04:05"), c.Mode)

	if len(data.Errors) > 0 {
		fmt.Printf("\n%sWarnings:%s\n", Red, Reset)
		for _, e := range data.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return nil
}
