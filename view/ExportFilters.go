package view

// FilterSet is the validated filter bundle exactly as it was submitted; it is stored on the job verbatim.
type FilterSet map[string]interface{}

type ExportFilters struct {
	DateFrom       string  `mapstructure:"dateFrom" validate:"omitempty,datetime=2006-01-02"`
	DateTo         string  `mapstructure:"dateTo" validate:"omitempty,datetime=2006-01-02"`
	ShopIds        []int64 `mapstructure:"shopIds" validate:"omitempty,max=100,dive,gt=0"`
	MinId          int64   `mapstructure:"minId" validate:"gte=0"`
	MaxId          int64   `mapstructure:"maxId" validate:"gte=0"`
	CustomerActive *bool   `mapstructure:"customerActive"`
	OrderStates    []int64 `mapstructure:"orderStates" validate:"omitempty,max=100,dive,gt=0"`
}
