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

package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-pg/pg/v10"
	log "github.com/sirupsen/logrus"
)

type DbCredentials struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	PoolSize int
}

type ConnectionProvider interface {
	GetConnection() *pg.DB
	Close() error
}

type connectionProviderImpl struct {
	creds DbCredentials
	db    *pg.DB
	mu    sync.Mutex
}

func NewConnectionProvider(creds DbCredentials) ConnectionProvider {
	return &connectionProviderImpl{creds: creds}
}

func (c *connectionProviderImpl) GetConnection() *pg.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		poolSize := c.creds.PoolSize
		if poolSize <= 0 {
			poolSize = 20
		}
		c.db = pg.Connect(&pg.Options{
			Addr:       fmt.Sprintf("%s:%d", c.creds.Host, c.creds.Port),
			User:       c.creds.Username,
			Password:   c.creds.Password,
			Database:   c.creds.Database,
			PoolSize:   poolSize,
			MaxRetries: 5,
		})
		c.db.AddQueryHook(queryLogger{})
	}
	return c.db
}

func (c *connectionProviderImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

type queryLogger struct{}

func (d queryLogger) BeforeQuery(ctx context.Context, q *pg.QueryEvent) (context.Context, error) {
	return ctx, nil
}

func (d queryLogger) AfterQuery(ctx context.Context, q *pg.QueryEvent) error {
	if !log.IsLevelEnabled(log.TraceLevel) {
		return nil
	}
	query, err := q.FormattedQuery()
	if err == nil {
		log.Tracef("DB query: %s", string(query))
	}
	return nil
}
