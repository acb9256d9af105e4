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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netcracker/qubership-data-exporter/config"
	"github.com/Netcracker/qubership-data-exporter/controller"
	"github.com/Netcracker/qubership-data-exporter/db"
	"github.com/Netcracker/qubership-data-exporter/metrics"
	mw "github.com/Netcracker/qubership-data-exporter/middleware"
	"github.com/Netcracker/qubership-data-exporter/repository"
	"github.com/Netcracker/qubership-data-exporter/security"
	"github.com/Netcracker/qubership-data-exporter/service"
	"github.com/Netcracker/qubership-data-exporter/utils"
	"github.com/Netcracker/qubership-data-exporter/view"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"gopkg.in/natefinch/lumberjack.v2"
)

func init() {
	log.SetFormatter(&prefixed.TextFormatter{
		DisableColors:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
		FullTimestamp:   true,
		ForceFormatting: true,
	})
	log.SetOutput(os.Stdout)
}

func setupLogging(params config.TechnicalParameters) {
	level, err := log.ParseLevel(params.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if params.LogFile.Path == "" {
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   params.LogFile.Path,
		MaxSize:    params.LogFile.MaxSizeMb,
		MaxBackups: params.LogFile.MaxBackups,
		MaxAge:     params.LogFile.MaxAgeDays,
	}))
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	systemConfig, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %s", err)
	}
	setupLogging(systemConfig.TechnicalParameters)
	utils.PrintConfig(systemConfig)

	instanceId := systemConfig.TechnicalParameters.InstanceId
	if instanceId == "" {
		hostname, _ := os.Hostname()
		instanceId = fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
	}

	readyChan := make(chan bool)
	healthController := controller.NewHealthController(readyChan)

	cp := db.NewConnectionProvider(db.DbCredentials{
		Host:     systemConfig.Database.Host,
		Port:     systemConfig.Database.Port,
		Database: systemConfig.Database.Name,
		Username: systemConfig.Database.Username,
		Password: systemConfig.Database.Password,
		PoolSize: systemConfig.Database.PoolSize,
	})
	defer cp.Close()

	exportConfig := systemConfig.Export
	jobRepo := repository.NewExportJobRepository(cp)
	fileRepo := repository.NewExportFileRepository(cp)
	logRepo := repository.NewExportLogRepository(cp)
	lockRepo := repository.NewLockRepository(cp)
	schemaRepo := repository.NewSchemaRepository(cp, exportConfig.TablePrefix)
	sourceRepo := repository.NewSourceRepository(cp, exportConfig.TablePrefix)

	archiveStorage, err := service.NewArchiveStorageService(view.MinioStorageCreds{
		BucketName: systemConfig.S3Storage.BucketName,
		IsActive:   systemConfig.S3Storage.Enabled,
		Endpoint:   systemConfig.S3Storage.Url,
		Crt:        systemConfig.S3Storage.Crt,
		AccessKey:  systemConfig.S3Storage.Username,
		SecretKey:  systemConfig.S3Storage.Password,
		UseSSL:     systemConfig.S3Storage.UseSSL,
	})
	if err != nil {
		log.Fatalf("Failed to init archive storage: %s", err)
	}

	lockService := service.NewLockService(lockRepo, instanceId)
	logService := service.NewExportLogService(logRepo)
	fileService := service.NewExportFileService(fileRepo, archiveStorage, time.Duration(exportConfig.DownloadTTLHours)*time.Hour)
	planService := service.NewExportPlanService(schemaRepo, sourceRepo, exportConfig.IncludeCustomTables)
	jobService := service.NewExportJobService(jobRepo, fileRepo, planService, service.NewFilterService(),
		logService, lockService, archiveStorage, exportConfig.Directory,
		service.AnonymizationConfig{ByDefault: exportConfig.Anonymize, Salt: exportConfig.AnonymizeSalt})
	batchService := service.NewBatchExportService(jobRepo, fileRepo, sourceRepo, fileService, logService, lockService, archiveStorage,
		service.BatchExportConfig{
			PageSize:       exportConfig.PageSize,
			TimeBudget:     time.Duration(exportConfig.TimeBudgetSec) * time.Second,
			ExportDir:      exportConfig.Directory,
			Delimiter:      exportConfig.DelimiterRune(),
			Enclosure:      exportConfig.EnclosureRune(),
			Bom:            exportConfig.Utf8Bom,
			FlushEvery:     exportConfig.FlushEveryRows,
			CreateArchive:  exportConfig.CreateArchive,
			CreateManifest: exportConfig.CreateManifest,
			AnonymizeSalt:  exportConfig.AnonymizeSalt,
			MaxErrorLength: exportConfig.MaxErrorLength,
		})

	cleanupService := service.NewCleanupService(jobService, lockService)
	if err := cleanupService.CreateExportCleanupJob(systemConfig.Cleanup.Schedule, systemConfig.Cleanup.TTLDays); err != nil {
		log.Errorf("Failed to schedule export cleanup: %s", err)
	}
	defer cleanupService.Stop()

	if systemConfig.Poller.Enabled {
		pollerService := service.NewBatchPollerService(jobRepo, batchService)
		if err := pollerService.Start(systemConfig.Poller.Schedule); err != nil {
			log.Errorf("Failed to start export batch poller: %s", err)
		}
		defer pollerService.Stop()
	}

	if err := security.SetupGoGuardian(systemConfig.Security.ApiKey); err != nil {
		log.Fatalf("Failed to setup authentication: %s", err)
	}

	exportController := controller.NewExportController(jobService, batchService, fileService, logService)
	exportFileController := controller.NewExportFileController(fileService)
	adminController := controller.NewAdminController(jobService)

	r := mux.NewRouter().UseEncodedPath()
	r.SkipClean(true)

	r.HandleFunc("/api/v1/exports/files/{fileId}/token", security.Secure(exportFileController.RenewDownloadToken)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/exports/files/{fileId}/download", security.NoSecure(exportFileController.DownloadExportFile)).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/exports", security.Secure(exportController.CreateExport)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/exports", security.Secure(exportController.GetExports)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/exports/estimate", security.Secure(exportController.EstimateExport)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/exports/{jobId}", security.Secure(exportController.GetExport)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/exports/{jobId}", security.Secure(exportController.DeleteExport)).Methods(http.MethodDelete)
	r.HandleFunc("/api/v1/exports/{jobId}/progress", security.Secure(exportController.GetExportProgress)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/exports/{jobId}/batch", security.Secure(exportController.RunExportBatch)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/exports/{jobId}/pause", security.Secure(exportController.PauseExport)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/exports/{jobId}/resume", security.Secure(exportController.ResumeExport)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/exports/{jobId}/files", security.Secure(exportController.GetExportFiles)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/exports/{jobId}/logs", security.Secure(exportController.GetExportLogs)).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/admin/purge", security.Secure(adminController.PurgeExports)).Methods(http.MethodPost)

	r.HandleFunc("/live", healthController.HandleLiveRequest).Methods(http.MethodGet)
	r.HandleFunc("/ready", healthController.HandleReadyRequest).Methods(http.MethodGet)

	if systemConfig.Monitoring.Enabled {
		metrics.RegisterAllPrometheusApplicationMetrics()
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
		r.Use(mw.PrometheusMiddleware)
	}

	var handler http.Handler = r
	if len(systemConfig.Security.AllowedOrigins) > 0 {
		handler = handlers.CORS(
			handlers.AllowedOrigins(systemConfig.Security.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", security.ApiKeyHeader}),
			handlers.ExposedHeaders([]string{"Content-Disposition", controller.ChecksumHeader}),
		)(handler)
	}
	handler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(handler)

	srv := &http.Server{
		Handler:      handler,
		Addr:         systemConfig.TechnicalParameters.ListenAddress,
		WriteTimeout: 300 * time.Second,
		ReadTimeout:  30 * time.Second,
	}

	utils.SafeAsync(func() {
		readyChan <- true
		close(readyChan)
	})

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	utils.SafeAsync(func() {
		<-shutdown
		log.Info("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("Graceful shutdown failed: %s", err)
		}
	})

	log.Infof("Listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Http server failed: %s", err)
	}
}
