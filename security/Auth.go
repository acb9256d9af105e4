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

package security

import (
	"fmt"

	"github.com/shaj13/go-guardian/v2/auth/strategies/union"
	"github.com/shaj13/libcache"
	_ "github.com/shaj13/libcache/lru"
)

const authCacheSize = 100

var fullAuthStrategy union.Union

func SetupGoGuardian(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("api key is not configured")
	}
	cache := libcache.LRU.New(authCacheSize)
	cache.RegisterOnExpired(func(key, _ interface{}) {
		cache.Delete(key)
	})
	fullAuthStrategy = union.New(NewApiKeyStrategy(apiKey, cache))
	return nil
}
