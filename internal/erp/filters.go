package erp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// listQuery describes a GET on a doctype collection.
type listQuery struct {
	Doctype string
	Fields  []string
	Filters [][]interface{}
	OrderBy string
	Limit   int // 0 means no limit
}

// encodeFilters builds a safe, URL-escaped filters string for ERPNext APIs.
func encodeFilters(filters [][]interface{}) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}

	encoded, err := json.Marshal(filters)
	if err != nil {
		return "", fmt.Errorf("failed to encode filters: %w", err)
	}

	return url.QueryEscape(string(encoded)), nil
}

// endpoint renders the query as a path relative to /api/resource.
func (q listQuery) endpoint() (string, error) {
	params := []string{fmt.Sprintf("limit_page_length=%d", q.Limit)}

	if len(q.Fields) > 0 {
		fields, err := json.Marshal(q.Fields)
		if err != nil {
			return "", fmt.Errorf("failed to encode fields: %w", err)
		}
		params = append(params, "fields="+url.QueryEscape(string(fields)))
	}

	if len(q.Filters) > 0 {
		encoded, err := encodeFilters(q.Filters)
		if err != nil {
			return "", err
		}
		params = append(params, "filters="+encoded)
	}

	if q.OrderBy != "" {
		params = append(params, "order_by="+url.QueryEscape(q.OrderBy))
	}

	return url.PathEscape(q.Doctype) + "?" + strings.Join(params, "&"), nil
}

// list runs q and decodes the rows into out, which must be a pointer to a slice.
func (c *Client) list(q listQuery, out interface{}) error {
	endpoint, err := q.endpoint()
	if err != nil {
		return err
	}
	return c.fetch("GET", endpoint, nil, out)
}
