package erp

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReorderQty(t *testing.T) {
	assert.Equal(t, 15.0, StockLevel{ProjectedQty: 5}.ReorderQty(20))
	assert.Equal(t, 22.0, StockLevel{ProjectedQty: -2}.ReorderQty(20))
	assert.Equal(t, 0.0, StockLevel{ProjectedQty: 25}.ReorderQty(20))
}

func TestLowStockItems(t *testing.T) {
	f, c := newFakeERP(t)
	f.handle("GET /api/resource/Bin", func(w http.ResponseWriter, r *http.Request) {
		assert.JSONEq(t, `[["projected_qty","<",5]]`, r.URL.Query().Get("filters"))
		assert.Equal(t, "projected_qty asc", r.URL.Query().Get("order_by"))
		w.Write([]byte(`{"data":[
			{"item_code":"LED","warehouse":"Main","actual_qty":1,"projected_qty":-1},
			{"item_code":"CBL","warehouse":"Main","actual_qty":4,"projected_qty":4}
		]}`))
	})

	levels, err := c.LowStockItems(5)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, "LED", levels[0].ItemCode)
	assert.Equal(t, -1.0, levels[0].ProjectedQty)
}

func TestReorder(t *testing.T) {
	f, c := newFakeERP(t)
	f.data("POST /api/resource/Material Request", map[string]string{"name": "MAT-MR-0001"})

	name, err := c.Reorder([]StockLevel{
		{ItemCode: "LED", Warehouse: "Main", ProjectedQty: 2},
		{ItemCode: "CBL", Warehouse: "Main", ProjectedQty: 30},
	}, 20)
	require.NoError(t, err)
	assert.Equal(t, "MAT-MR-0001", name)

	body := f.body("POST /api/resource/Material Request")
	assert.Equal(t, "Purchase", body["material_request_type"])
	assert.Equal(t, "Acme Ltd", body["company"])

	rows := body["items"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "LED", row["item_code"])
	assert.Equal(t, 18.0, row["qty"])
	assert.Equal(t, "Main", row["warehouse"])
}

func TestReorder_NothingBelowTarget(t *testing.T) {
	f, c := newFakeERP(t)

	_, err := c.Reorder([]StockLevel{{ItemCode: "CBL", ProjectedQty: 30}}, 20)
	assert.ErrorIs(t, err, ErrNoItems)
	assert.Zero(t, f.called("POST /api/resource/Material Request"))
}

func TestFilterLevels(t *testing.T) {
	levels := []StockLevel{{ItemCode: "LED"}, {ItemCode: "CBL"}, {ItemCode: "SVC"}}

	assert.Len(t, filterLevels(levels, nil), 3)
	got := filterLevels(levels, []string{"SVC", "LED"})
	require.Len(t, got, 2)
	assert.Equal(t, "LED", got[0].ItemCode)
	assert.Equal(t, "SVC", got[1].ItemCode)
}
