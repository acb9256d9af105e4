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

package context

import (
	"net/http"

	"github.com/shaj13/go-guardian/v2/auth"
)

const AuthMethodExt = "authMethod"

const (
	AuthMethodApiKey = "apiKey"
	AuthMethodSystem = "system"
)

type SecurityContext interface {
	GetUserId() string
	GetAuthMethod() string
}

func Create(r *http.Request) SecurityContext {
	user := auth.User(r)
	if user == nil {
		return CreateSystemContext()
	}
	return &securityContextImpl{
		userId:     user.GetID(),
		authMethod: user.GetExtensions().Get(AuthMethodExt),
	}
}

// CreateSystemContext is used by scheduled jobs.
func CreateSystemContext() SecurityContext {
	return &securityContextImpl{userId: "system", authMethod: AuthMethodSystem}
}

type securityContextImpl struct {
	userId     string
	authMethod string
}

func (ctx securityContextImpl) GetUserId() string {
	return ctx.userId
}

func (ctx securityContextImpl) GetAuthMethod() string {
	return ctx.authMethod
}
