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
	"time"

	"github.com/Netcracker/qubership-data-exporter/service/logger"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const (
	cleanupJobType       = "cleanup"
	sharedCleanupLock    = "export_cleanup_lock"
	cleanupLockLease     = 120 * time.Second
	cleanupLockHeartbeat = 30 * time.Second
	cleanupJobTimeout    = time.Hour
)

type CleanupService interface {
	CreateExportCleanupJob(schedule string, ttlDays int) error
	Stop()
}

func NewCleanupService(jobService ExportJobService, lockService LockService) CleanupService {
	return &cleanupServiceImpl{
		jobService:  jobService,
		lockService: lockService,
		cron:        cron.New(),
	}
}

type cleanupServiceImpl struct {
	jobService  ExportJobService
	lockService LockService
	cron        *cron.Cron
}

func (c *cleanupServiceImpl) CreateExportCleanupJob(schedule string, ttlDays int) error {
	job := &exportCleanupJob{
		jobService:  c.jobService,
		lockService: c.lockService,
		ttlDays:     ttlDays,
		now:         time.Now,
	}
	wrappedJob := cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(job)
	if _, err := c.cron.AddJob(schedule, wrappedJob); err != nil {
		log.Warnf("Export cleanup job wasn't added for schedule - %s. With error - %s", schedule, err)
		return err
	}
	c.cron.Start()
	log.Infof("Export cleanup job was created with schedule - %s", schedule)
	return nil
}

func (c *cleanupServiceImpl) Stop() {
	<-c.cron.Stop().Done()
}

type exportCleanupJob struct {
	jobService  ExportJobService
	lockService LockService
	ttlDays     int
	now         func() time.Time
}

func (j *exportCleanupJob) Run() {
	jobCtx, cancel := context.WithTimeout(context.Background(), cleanupJobTimeout)
	defer cancel()
	jobCtx = logger.WithJob(jobCtx, cleanupJobType, uuid.New().String())

	defer func() {
		if err := recover(); err != nil {
			logger.Errorf(jobCtx, "cleanup job failed with panic: %v", err)
		}
	}()

	acquired, lockLostCh, err := j.lockService.AcquireLock(jobCtx, sharedCleanupLock, LockOptions{
		Lease:             cleanupLockLease,
		HeartbeatInterval: cleanupLockHeartbeat,
		NotifyOnLoss:      true,
	})
	if err != nil {
		logger.Errorf(jobCtx, "Failed to acquire lock: %v", err)
		return
	}
	if !acquired {
		logger.Info(jobCtx, "job skipped - lock is held by another instance")
		return
	}
	defer func() {
		if err := j.lockService.ReleaseLock(context.Background(), sharedCleanupLock); err != nil {
			logger.Warnf(jobCtx, "Failed to release lock: %v", err)
		}
	}()
	go func() {
		event, ok := <-lockLostCh
		if !ok {
			return
		}
		logger.Warnf(jobCtx, "Lock %s lost: %s. Canceling cleanup job", event.LockName, event.Reason)
		cancel()
	}()

	deleteBefore := j.now().AddDate(0, 0, -j.ttlDays)
	logger.Infof(jobCtx, "Deleting export jobs created before %s", deleteBefore.Format(time.RFC3339))
	report, err := j.jobService.DeleteJobsCreatedBefore(jobCtx, deleteBefore)
	if err != nil {
		logger.Errorf(jobCtx, "Cleanup failed: %v", err)
	}
	if report != nil {
		logger.Infof(jobCtx, "Cleanup finished: %d jobs and %d files deleted", report.DeletedJobs, report.DeletedFiles)
	}
}
