package repository

import (
	"testing"

	"github.com/Netcracker/qubership-data-exporter/view"
	"github.com/stretchr/testify/assert"
)

func TestCompileRootFilters(t *testing.T) {
	active := true
	customer := view.PlanEntity{
		Name:       "customer",
		PrimaryKey: "id_customer",
		Root:       true,
		Family:     view.ExportFamilyCustomers,
		Columns:    []string{"id_customer", "id_shop", "email", "active", "date_add"},
	}
	filters := view.ExportFilters{
		DateFrom:       "2024-01-01",
		DateTo:         "2024-12-31",
		ShopIds:        []int64{1, 2},
		MinId:          10,
		CustomerActive: &active,
		OrderStates:    []int64{5},
	}

	where, params := compileRootFilters(customer, filters)
	assert.Equal(t, " AND date_add >= ? AND date_add <= ? AND id_shop IN (?) AND ? >= ? AND active = ?", where)
	assert.Len(t, params, 6)
	assert.Equal(t, "2024-01-01 00:00:00", params[0])
	assert.Equal(t, "2024-12-31 23:59:59", params[1])
	assert.Equal(t, int64(10), params[4])
	assert.Equal(t, true, params[5])
}

func TestCompileRootFilters_SkipsUnknownColumns(t *testing.T) {
	orders := view.PlanEntity{
		Name:       "orders",
		PrimaryKey: "id_order",
		Root:       true,
		Family:     view.ExportFamilyOrders,
		Columns:    []string{"id_order", "current_state"},
	}
	active := false
	where, params := compileRootFilters(orders, view.ExportFilters{
		DateFrom:       "2024-01-01",
		CustomerActive: &active,
		OrderStates:    []int64{2, 3},
	})
	assert.Equal(t, " AND current_state IN (?)", where)
	assert.Len(t, params, 1)

	where, params = compileRootFilters(orders, view.ExportFilters{})
	assert.Empty(t, where)
	assert.Empty(t, params)
}

func TestStableOrder(t *testing.T) {
	ent := view.PlanEntity{
		Name:       "customer_group",
		ForeignKey: "id_customer",
		Columns:    []string{"id_group", "id_customer"},
	}
	assert.Equal(t, `"id_customer", "id_group"`, string(stableOrder(ent)))
}

func TestToOrderedRows(t *testing.T) {
	rows := []map[string]interface{}{{"b": 2, "a": 1}}

	ordered := toOrderedRows(rows, []string{"b", "a", "c"})
	assert.Equal(t, []string{"b", "a", "c"}, ordered[0].Keys())
	value, ok := ordered[0].Get("c")
	assert.True(t, ok)
	assert.Nil(t, value)

	sorted := toOrderedRows(rows, nil)
	assert.Equal(t, []string{"a", "b"}, sorted[0].Keys())
}
