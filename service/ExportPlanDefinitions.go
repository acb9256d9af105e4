package service

import "github.com/Netcracker/qubership-data-exporter/view"

type entityDefinition struct {
	name       string
	primaryKey string
	foreignKey string
	// parent defaults to the family root
	parent    string
	parentKey string
	root      bool
}

var familyRoots = map[view.ExportFamily]string{
	view.ExportFamilyCustomers: "customer",
	view.ExportFamilyOrders:    "orders",
}

// customFamilyColumns are the foreign key columns that attach a custom table to a family root.
var customFamilyColumns = map[view.ExportFamily]string{
	view.ExportFamilyCustomers: "id_customer",
	view.ExportFamilyOrders:    "id_order",
}

var detailLevels = []view.DetailLevel{view.DetailLevelEssential, view.DetailLevelComplete, view.DetailLevelUltra}

// levelEntities lists what each level adds on top of the previous one.
var levelEntities = map[view.DetailLevel]map[view.ExportFamily][]entityDefinition{
	view.DetailLevelEssential: {
		view.ExportFamilyCustomers: {
			{name: "customer", primaryKey: "id_customer", root: true},
			{name: "address", primaryKey: "id_address", foreignKey: "id_customer"},
		},
		view.ExportFamilyOrders: {
			{name: "orders", primaryKey: "id_order", root: true},
			{name: "order_detail", primaryKey: "id_order_detail", foreignKey: "id_order"},
		},
	},
	view.DetailLevelComplete: {
		view.ExportFamilyCustomers: {
			{name: "customer_group", foreignKey: "id_customer"},
		},
		view.ExportFamilyOrders: {
			{name: "order_history", primaryKey: "id_order_history", foreignKey: "id_order"},
			{name: "order_payment", primaryKey: "id_order_payment", foreignKey: "order_reference", parentKey: "reference"},
			{name: "order_carrier", primaryKey: "id_order_carrier", foreignKey: "id_order"},
			{name: "order_invoice", primaryKey: "id_order_invoice", foreignKey: "id_order"},
			{name: "order_slip", primaryKey: "id_order_slip", foreignKey: "id_order"},
			{name: "order_cart_rule", primaryKey: "id_order_cart_rule", foreignKey: "id_order"},
		},
	},
	view.DetailLevelUltra: {
		view.ExportFamilyCustomers: {
			{name: "cart", primaryKey: "id_cart", foreignKey: "id_customer"},
			{name: "cart_product", foreignKey: "id_cart", parent: "cart"},
			{name: "customer_thread", primaryKey: "id_customer_thread", foreignKey: "id_customer"},
			{name: "customer_message", primaryKey: "id_customer_message", foreignKey: "id_customer_thread", parent: "customer_thread"},
			{name: "connections", primaryKey: "id_connections", foreignKey: "id_customer"},
			{name: "guest", primaryKey: "id_guest", foreignKey: "id_customer"},
		},
		view.ExportFamilyOrders: {
			{name: "order_invoice_payment", foreignKey: "id_order_invoice", parent: "order_invoice"},
			{name: "order_slip_detail", primaryKey: "id_order_slip_detail", foreignKey: "id_order_slip", parent: "order_slip"},
			{name: "order_return", primaryKey: "id_order_return", foreignKey: "id_order"},
			{name: "order_return_detail", foreignKey: "id_order_return", parent: "order_return"},
			{name: "order_message", primaryKey: "id_order_message", foreignKey: "id_order"},
			{name: "message", primaryKey: "id_message", foreignKey: "id_order"},
		},
	},
}

func familiesOf(family view.ExportFamily) []view.ExportFamily {
	switch family {
	case view.ExportFamilyCustomers:
		return []view.ExportFamily{view.ExportFamilyCustomers}
	case view.ExportFamilyOrders:
		return []view.ExportFamily{view.ExportFamilyOrders}
	case view.ExportFamilyFull:
		return []view.ExportFamily{view.ExportFamilyCustomers, view.ExportFamilyOrders}
	}
	return nil
}

// definitionsFor accumulates every level up to and including level.
func definitionsFor(family view.ExportFamily, level view.DetailLevel) []entityDefinition {
	result := make([]entityDefinition, 0)
	for _, l := range detailLevels {
		result = append(result, levelEntities[l][family]...)
		if l == level {
			break
		}
	}
	return result
}

func isCoreTable(name string) bool {
	for _, families := range levelEntities {
		for _, defs := range families {
			for _, d := range defs {
				if d.name == name {
					return true
				}
			}
		}
	}
	return false
}
