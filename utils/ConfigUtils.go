// Copyright 2024-2025 NetCracker Technology Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package utils

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	log "github.com/sirupsen/logrus"
)

// PrintConfig logs every exported field of config; fields tagged sensitive are masked.
func PrintConfig(config interface{}) {
	log.Info("Loaded configuration:")
	for _, line := range configLines("", reflect.ValueOf(config)) {
		log.Info(line)
	}
}

func configLines(prefix string, v reflect.Value) []string {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	var lines []string
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		key := lowerFirst(field.Name)
		if prefix != "" {
			key = prefix + "." + key
		}
		value := v.Field(i)
		if value.Kind() == reflect.Struct {
			lines = append(lines, configLines(key, value)...)
			continue
		}
		_, sensitive := field.Tag.Lookup("sensitive")
		lines = append(lines, key+"="+formatConfigValue(value, sensitive))
	}
	return lines
}

func formatConfigValue(value reflect.Value, sensitive bool) string {
	if sensitive {
		if value.IsZero() {
			return ""
		}
		return "*****"
	}
	if value.Kind() == reflect.Slice {
		items := make([]string, 0, value.Len())
		for i := 0; i < value.Len(); i++ {
			items = append(items, fmt.Sprintf("%v", value.Index(i).Interface()))
		}
		return "[" + strings.Join(items, ",") + "]"
	}
	return fmt.Sprintf("%v", value.Interface())
}

func lowerFirst(s string) string {
	runes := []rune(s)
	if len(runes) > 0 {
		runes[0] = unicode.ToLower(runes[0])
	}
	return string(runes)
}
