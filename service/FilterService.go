package service

import (
	"fmt"
	"net/http"

	"github.com/Netcracker/qubership-data-exporter/exception"
	"github.com/Netcracker/qubership-data-exporter/view"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

type FilterService interface {
	// ParseFilters decodes and validates a submitted filter set. Unknown keys are rejected.
	ParseFilters(filters view.FilterSet) (*view.ExportFilters, error)
}

func NewFilterService() FilterService {
	return &filterServiceImpl{validate: validator.New()}
}

type filterServiceImpl struct {
	validate *validator.Validate
}

func (f filterServiceImpl) ParseFilters(filters view.FilterSet) (*view.ExportFilters, error) {
	result := new(view.ExportFilters)
	if len(filters) == 0 {
		return result, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]interface{}(filters)); err != nil {
		return nil, invalidFiltersError(err)
	}
	if err := f.validate.Struct(result); err != nil {
		return nil, invalidFiltersError(err)
	}
	if result.DateFrom != "" && result.DateTo != "" && result.DateFrom > result.DateTo {
		return nil, invalidFiltersError(fmt.Errorf("dateFrom %s is after dateTo %s", result.DateFrom, result.DateTo))
	}
	if result.MinId > 0 && result.MaxId > 0 && result.MinId > result.MaxId {
		return nil, invalidFiltersError(fmt.Errorf("minId %d is greater than maxId %d", result.MinId, result.MaxId))
	}
	return result, nil
}

func invalidFiltersError(err error) error {
	return &exception.CustomError{
		Status:  http.StatusBadRequest,
		Code:    exception.InvalidExportFilters,
		Message: exception.InvalidExportFiltersMsg,
		Params:  map[string]interface{}{"error": err.Error()},
	}
}
