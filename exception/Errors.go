package exception

import (
	"fmt"
	"sort"
	"strings"
)

type CustomError struct {
	Status  int                    `json:"status"`
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Debug   string                 `json:"debug,omitempty"`
}

func (c CustomError) Error() string {
	msg := c.Message
	// longest names first, so $jobId is not clobbered by $job
	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		msg = strings.ReplaceAll(msg, "$"+k, fmt.Sprintf("%v", c.Params[k]))
	}
	if c.Debug != "" {
		return msg + " | " + c.Debug
	}
	return msg
}

type NotFoundError struct {
	Id      string
	Name    string
	Message string
}

func (g NotFoundError) Error() string {
	if g.Message != "" {
		return g.Message
	}
	if g.Id != "" {
		return fmt.Sprintf("entity with id = %s not found", g.Id)
	}
	return fmt.Sprintf("entity with name = %s not found", g.Name)
}
