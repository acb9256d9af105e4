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

package logger

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const (
	jobTypeKey contextKey = "jobType"
	jobIdKey   contextKey = "jobId"
	entityKey  contextKey = "entity"
)

// WithJob marks ctx so that messages logged with it carry the job prefix.
func WithJob(ctx context.Context, jobType string, jobId string) context.Context {
	ctx = context.WithValue(ctx, jobTypeKey, jobType)
	return context.WithValue(ctx, jobIdKey, jobId)
}

func WithEntity(ctx context.Context, entity string) context.Context {
	return context.WithValue(ctx, entityKey, entity)
}

func getJobPrefix(ctx context.Context) string {
	jobType := ctx.Value(jobTypeKey)
	jobId := ctx.Value(jobIdKey)

	if jobType != nil && jobId != nil {
		return fmt.Sprintf("[%s] [job=%s] ", jobType, jobId)
	}
	return ""
}

func entry(ctx context.Context) *log.Entry {
	if entity, ok := ctx.Value(entityKey).(string); ok && entity != "" {
		return log.WithField("entity", entity)
	}
	return log.NewEntry(log.StandardLogger())
}

func Debugf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Debug(getJobPrefix(ctx) + fmt.Sprintf(format, args...))
}

func Infof(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Info(getJobPrefix(ctx) + fmt.Sprintf(format, args...))
}

func Info(ctx context.Context, args ...interface{}) {
	entry(ctx).Info(getJobPrefix(ctx) + fmt.Sprint(args...))
}

func Warnf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Warn(getJobPrefix(ctx) + fmt.Sprintf(format, args...))
}

func Errorf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Error(getJobPrefix(ctx) + fmt.Sprintf(format, args...))
}

func Tracef(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Trace(getJobPrefix(ctx) + fmt.Sprintf(format, args...))
}
