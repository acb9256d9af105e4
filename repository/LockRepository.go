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

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Netcracker/qubership-data-exporter/db"
	"github.com/Netcracker/qubership-data-exporter/entity"
	"github.com/go-pg/pg/v10"
)

var (
	ErrLockNotFound = errors.New("lock not found")
	ErrLockLost     = errors.New("lock is no longer held by this owner")
)

const clockSkewMargin = 10 * time.Second

type LockRepository interface {
	TryAcquireLock(ctx context.Context, lockName string, owner string, lease time.Duration) (bool, error)
	ExtendLock(ctx context.Context, lockName string, owner string, lease time.Duration) error
	ReleaseLock(ctx context.Context, lockName string, owner string) error
	GetLock(ctx context.Context, lockName string) (*entity.ExportLockEntity, error)
}

type lockRepositoryImpl struct {
	cp db.ConnectionProvider
}

func NewLockRepository(cp db.ConnectionProvider) LockRepository {
	return &lockRepositoryImpl{cp: cp}
}

func (r *lockRepositoryImpl) TryAcquireLock(ctx context.Context, lockName string, owner string, lease time.Duration) (bool, error) {
	now := time.Now().UTC()
	existing, err := r.GetLock(ctx, lockName)
	if err != nil && !errors.Is(err, ErrLockNotFound) {
		return false, err
	}
	if existing == nil {
		lock := &entity.ExportLockEntity{
			Name:      lockName,
			Owner:     owner,
			LeasedAt:  now,
			ExpiresAt: now.Add(lease),
			Version:   1,
		}
		if _, err := r.cp.GetConnection().ModelContext(ctx, lock).Insert(); err != nil {
			if pgErr, ok := err.(pg.Error); ok && pgErr.IntegrityViolation() {
				// another owner inserted it first
				return false, nil
			}
			return false, fmt.Errorf("failed to insert lock %s: %w", lockName, err)
		}
		return true, nil
	}
	if existing.ExpiresAt.After(now.Add(-clockSkewMargin)) {
		return false, nil
	}
	result, err := r.cp.GetConnection().ModelContext(ctx, &entity.ExportLockEntity{}).
		Set("owner = ?, leased_at = ?, expires_at = ?, version = version + 1", owner, now, now.Add(lease)).
		Where("name = ? AND version = ?", lockName, existing.Version).
		Update()
	if err != nil {
		return false, fmt.Errorf("failed to take over lock %s: %w", lockName, err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *lockRepositoryImpl) ExtendLock(ctx context.Context, lockName string, owner string, lease time.Duration) error {
	now := time.Now().UTC()
	result, err := r.cp.GetConnection().ModelContext(ctx, &entity.ExportLockEntity{}).
		Set("expires_at = ?, version = version + 1", now.Add(lease)).
		Where("name = ? AND owner = ? AND expires_at > ?", lockName, owner, now).
		Update()
	if err != nil {
		return fmt.Errorf("failed to extend lock %s: %w", lockName, err)
	}
	if result.RowsAffected() == 0 {
		return ErrLockLost
	}
	return nil
}

func (r *lockRepositoryImpl) ReleaseLock(ctx context.Context, lockName string, owner string) error {
	_, err := r.cp.GetConnection().ModelContext(ctx, &entity.ExportLockEntity{}).
		Set("expires_at = ?, version = version + 1", time.Now().UTC().Add(-clockSkewMargin)).
		Where("name = ? AND owner = ?", lockName, owner).
		Update()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", lockName, err)
	}
	return nil
}

func (r *lockRepositoryImpl) GetLock(ctx context.Context, lockName string) (*entity.ExportLockEntity, error) {
	var lock entity.ExportLockEntity
	err := r.cp.GetConnection().ModelContext(ctx, &lock).
		Where("name = ?", lockName).
		Select()
	if err != nil {
		if errors.Is(err, pg.ErrNoRows) {
			return nil, ErrLockNotFound
		}
		return nil, fmt.Errorf("failed to get lock %s: %w", lockName, err)
	}
	return &lock, nil
}
