package service

import (
	"context"
	"time"

	"github.com/Netcracker/qubership-data-exporter/metrics"
	"github.com/Netcracker/qubership-data-exporter/repository"
	"github.com/Netcracker/qubership-data-exporter/view"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const pollerJobsPerRun = 20

// BatchPollerService periodically invokes RunBatch for jobs that still have work to do.
type BatchPollerService interface {
	Start(schedule string) error
	Stop()
}

func NewBatchPollerService(jobRepo repository.ExportJobRepository, batchService BatchExportService) BatchPollerService {
	return &batchPollerServiceImpl{
		jobRepo:      jobRepo,
		batchService: batchService,
		cron:         cron.New(),
	}
}

type batchPollerServiceImpl struct {
	jobRepo      repository.ExportJobRepository
	batchService BatchExportService
	cron         *cron.Cron
}

func (p *batchPollerServiceImpl) Start(schedule string) error {
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(cron.FuncJob(p.poll))
	if _, err := p.cron.AddJob(schedule, job); err != nil {
		log.Warnf("Export batch poller wasn't added for schedule - %s. With error - %s", schedule, err)
		return err
	}
	p.cron.Start()
	log.Infof("Export batch poller was created with schedule - %s", schedule)
	return nil
}

func (p *batchPollerServiceImpl) Stop() {
	<-p.cron.Stop().Done()
}

func (p *batchPollerServiceImpl) poll() {
	ctx := context.Background()
	start := time.Now()
	p.updateQueueGauges(ctx)

	jobs, err := p.jobRepo.GetJobs(ctx, []string{string(view.ExportJobStatusRunning), string(view.ExportJobStatusPending)}, 0)
	if err != nil {
		log.Errorf("Export batch poller failed to list jobs: %v", err)
		return
	}
	// jobs come newest first
	for i, processed := len(jobs)-1, 0; i >= 0 && processed < pollerJobsPerRun; i-- {
		processed++
		result, err := p.batchService.RunBatch(ctx, jobs[i].Id)
		if err != nil {
			log.Errorf("Export batch of job %s failed: %v", jobs[i].Id, err)
			continue
		}
		if result.Busy {
			continue
		}
		log.Debugf("Export batch of job %s: status %s, %d rows", jobs[i].Id, result.Status, result.ProcessedDelta)
	}
	log.Debugf("Export batch poller run took %v", time.Since(start))
}

func (p *batchPollerServiceImpl) updateQueueGauges(ctx context.Context) {
	counts, err := p.jobRepo.CountJobsByStatus(ctx)
	if err != nil {
		log.Warnf("Failed to count export jobs: %v", err)
		return
	}
	for _, status := range []view.ExportJobStatus{view.ExportJobStatusPending, view.ExportJobStatusRunning, view.ExportJobStatusPaused} {
		metrics.ExportJobQueueSize.WithLabelValues(string(status)).Set(float64(counts[string(status)]))
	}
}
