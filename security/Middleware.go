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
	"net/http"
	"runtime/debug"

	"github.com/Netcracker/qubership-data-exporter/exception"
	"github.com/Netcracker/qubership-data-exporter/utils"
	"github.com/shaj13/go-guardian/v2/auth"
	log "github.com/sirupsen/logrus"
)

func Secure(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer recoverRequest(w)
		_, user, err := fullAuthStrategy.AuthenticateRequest(r)
		if err != nil {
			respondWithAuthFailedError(w, err)
			return
		}
		r = auth.RequestWithUser(user, r)
		next.ServeHTTP(w, r)
	}
}

// NoSecure is for endpoints protected otherwise, e.g. by a download token.
func NoSecure(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer recoverRequest(w)
		next.ServeHTTP(w, r)
	}
}

func recoverRequest(w http.ResponseWriter) {
	if err := recover(); err != nil {
		log.Errorf("Request failed with panic: %v", err)
		log.Tracef("Stacktrace: %v", string(debug.Stack()))
		utils.RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusInternalServerError,
			Message: http.StatusText(http.StatusInternalServerError),
			Debug:   fmt.Sprintf("%v", err),
		})
	}
}

func respondWithAuthFailedError(w http.ResponseWriter, err error) {
	log.Tracef("Authentication failed: %+v", err)
	customErr := &exception.CustomError{
		Status:  http.StatusUnauthorized,
		Code:    exception.AuthFailed,
		Message: exception.AuthFailedMsg,
		Debug:   fmt.Sprintf("%v", err),
	}
	utils.RespondWithJson(w, customErr.Status, customErr)
}
