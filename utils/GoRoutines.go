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
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// SafeAsync runs f in a goroutine; a panic is logged instead of crashing the process.
func SafeAsync(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("Goroutine failed with panic: %v", r)
				log.Tracef("Stacktrace: %v", string(debug.Stack()))
			}
		}()
		f()
	}()
}

// SafeSync runs f and converts a panic into the returned error.
func SafeSync(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Call failed with panic: %v", r)
			log.Tracef("Stacktrace: %v", string(debug.Stack()))
			switch x := r.(type) {
			case error:
				err = fmt.Errorf("panic: %w", x)
			default:
				err = fmt.Errorf("panic: %v", x)
			}
		}
	}()
	return f()
}
