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

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Netcracker/qubership-data-exporter/repository"
	"github.com/Netcracker/qubership-data-exporter/utils"
	log "github.com/sirupsen/logrus"
)

const (
	defaultLease             = 60 * time.Second
	defaultHeartbeatInterval = 20 * time.Second
	maxRetries               = 3
)

type LockLostEvent struct {
	LockName   string
	InstanceId string
	Reason     string
}

type LockOptions struct {
	Lease             time.Duration
	HeartbeatInterval time.Duration
	NotifyOnLoss      bool
}

type LockService interface {
	AcquireLock(ctx context.Context, lockName string, options LockOptions) (bool, <-chan LockLostEvent, error)
	ReleaseLock(ctx context.Context, lockName string) error
}

type lockServiceImpl struct {
	lockRepo           repository.LockRepository
	instanceId         string
	mu                 sync.Mutex
	heartbeatCancelers map[string]context.CancelFunc
	lockLostChannels   map[string]chan LockLostEvent
}

func NewLockService(lockRepo repository.LockRepository, instanceId string) LockService {
	return &lockServiceImpl{
		lockRepo:           lockRepo,
		instanceId:         instanceId,
		heartbeatCancelers: make(map[string]context.CancelFunc),
		lockLostChannels:   make(map[string]chan LockLostEvent),
	}
}

func (s *lockServiceImpl) AcquireLock(ctx context.Context, lockName string, options LockOptions) (bool, <-chan LockLostEvent, error) {
	if lockName == "" {
		return false, nil, fmt.Errorf("lock name cannot be empty")
	}
	options = normalizeLockOptions(options)

	acquired, err := s.lockRepo.TryAcquireLock(ctx, lockName, s.instanceId, options.Lease)
	if err != nil || !acquired {
		return acquired, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, exists := s.heartbeatCancelers[lockName]; exists {
		cancel()
	}
	// heartbeat stops on release, not when the caller context ends
	heartbeatCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.heartbeatCancelers[lockName] = cancel

	var notifyChan chan LockLostEvent
	if options.NotifyOnLoss {
		notifyChan = make(chan LockLostEvent, 1)
		s.lockLostChannels[lockName] = notifyChan
	}

	utils.SafeAsync(func() {
		s.runHeartbeat(heartbeatCtx, lockName, options)
	})

	log.Debugf("Acquired lock %s with lease %v and heartbeat %v", lockName, options.Lease, options.HeartbeatInterval)
	return true, notifyChan, nil
}

func normalizeLockOptions(options LockOptions) LockOptions {
	if options.Lease <= 0 {
		options.Lease = defaultLease
	}
	if options.HeartbeatInterval <= 0 {
		options.HeartbeatInterval = defaultHeartbeatInterval
	}
	if options.HeartbeatInterval >= options.Lease {
		options.HeartbeatInterval = options.Lease / 3
	}
	return options
}

func (s *lockServiceImpl) ReleaseLock(ctx context.Context, lockName string) error {
	if lockName == "" {
		return fmt.Errorf("lock name cannot be empty")
	}
	s.cleanupLockResources(lockName)

	var err error
	for i := 0; i < maxRetries; i++ {
		err = s.lockRepo.ReleaseLock(ctx, lockName, s.instanceId)
		if err == nil {
			log.Debugf("Released lock %s", lockName)
			return nil
		}
		log.Warnf("Failed to release lock %s (attempt %d/%d): %v", lockName, i+1, maxRetries, err)
		if err := waitWithBackoff(ctx, i); err != nil {
			return fmt.Errorf("failed to wait with backoff: %w", err)
		}
	}
	return fmt.Errorf("failed to release lock after %d attempts: %w", maxRetries, err)
}

func (s *lockServiceImpl) cleanupLockResources(lockName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, exists := s.heartbeatCancelers[lockName]; exists {
		cancel()
		delete(s.heartbeatCancelers, lockName)
	}
	if notifyChan, exists := s.lockLostChannels[lockName]; exists {
		close(notifyChan)
		delete(s.lockLostChannels, lockName)
	}
}

func waitWithBackoff(ctx context.Context, attempt int) error {
	backoff := 100 * time.Millisecond * time.Duration(attempt+1)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}

func (s *lockServiceImpl) sendLockLostNotification(lockName string, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notifyChan, exists := s.lockLostChannels[lockName]
	if !exists {
		return
	}
	select {
	case notifyChan <- LockLostEvent{LockName: lockName, InstanceId: s.instanceId, Reason: reason}:
		log.Debugf("Sent lock lost notification for %s: %s", lockName, reason)
	default:
		log.Warnf("Failed to send lock lost notification for %s: channel buffer full", lockName)
	}
	close(notifyChan)
	delete(s.lockLostChannels, lockName)
}

func (s *lockServiceImpl) runHeartbeat(ctx context.Context, lockName string, options LockOptions) {
	ticker := time.NewTicker(options.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Tracef("Heartbeat for lock %s stopped", lockName)
			return
		case <-ticker.C:
			if err := s.extendLock(ctx, lockName, options.Lease); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Errorf("Failed to extend lock %s: %v", lockName, err)
				if options.NotifyOnLoss {
					s.sendLockLostNotification(lockName, err.Error())
				}
				return
			}
			log.Tracef("Extended lock %s", lockName)
		}
	}
}

func (s *lockServiceImpl) extendLock(ctx context.Context, lockName string, lease time.Duration) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = s.lockRepo.ExtendLock(ctx, lockName, s.instanceId, lease)
		if err == nil || errors.Is(err, repository.ErrLockLost) {
			return err
		}
		log.Warnf("Failed to extend lock %s (attempt %d/%d): %v", lockName, i+1, maxRetries, err)
		if err := waitWithBackoff(ctx, i); err != nil {
			return err
		}
	}
	return fmt.Errorf("failed to extend lock after %d attempts: %w", maxRetries, err)
}
