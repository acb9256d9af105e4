package controller

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/Netcracker/qubership-data-exporter/exception"
	"github.com/gorilla/mux"
)

const maxRequestBodySize = 1 << 20

func getStringParam(r *http.Request, p string) string {
	params := mux.Vars(r)
	return params[p]
}

// readJsonBody decodes a bounded request body into v.
func readJsonBody(r *http.Request, v interface{}) *exception.CustomError {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		return badRequestBodyError(err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return badRequestBodyError(err)
	}
	return nil
}

func badRequestBodyError(err error) *exception.CustomError {
	return &exception.CustomError{
		Status:  http.StatusBadRequest,
		Code:    exception.BadRequestBody,
		Message: exception.BadRequestBodyMsg,
		Debug:   err.Error(),
	}
}

func getLimitQueryParam(r *http.Request) (int, *exception.CustomError) {
	return getLimitQueryParamBase(r, 100, 1000)
}

func getLimitQueryParamBase(r *http.Request, defaultLimit, maxLimit int) (int, *exception.CustomError) {
	if r.URL.Query().Get("limit") != "" {
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil {
			return 0, &exception.CustomError{
				Status:  http.StatusBadRequest,
				Code:    exception.IncorrectParamType,
				Message: exception.IncorrectParamTypeMsg,
				Params:  map[string]interface{}{"param": "limit", "type": "int"},
				Debug:   err.Error(),
			}
		}
		if limit < 1 || limit > maxLimit {
			return 0, &exception.CustomError{
				Status:  http.StatusBadRequest,
				Code:    exception.InvalidParameterValue,
				Message: exception.InvalidLimitMsg,
				Params:  map[string]interface{}{"value": limit, "maxLimit": maxLimit},
			}
		}
		return limit, nil
	}
	return defaultLimit, nil
}

// page numbering starts with 0
func getPageQueryParam(r *http.Request) (int, *exception.CustomError) {
	value := r.URL.Query().Get("page")
	if value == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(value)
	if err != nil {
		return 0, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.IncorrectParamType,
			Message: exception.IncorrectParamTypeMsg,
			Params:  map[string]interface{}{"param": "page", "type": "int"},
			Debug:   err.Error(),
		}
	}
	if page < 0 {
		return 0, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.InvalidParameterValue,
			Message: exception.InvalidParameterValueMsg,
			Params:  map[string]interface{}{"param": "page", "value": page},
		}
	}
	return page, nil
}
