package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const EnvPrefix = "EXPORTER"

var defaults = map[string]interface{}{
	"database.host":     "localhost",
	"database.port":     5432,
	"database.name":     "",
	"database.username": "",
	"database.password": "",
	"database.poolSize": 20,

	"security.apiKey":         "",
	"security.allowedOrigins": []string{},

	"technicalParameters.instanceId":         "",
	"technicalParameters.basePath":           ".",
	"technicalParameters.listenAddress":      ":8080",
	"technicalParameters.logLevel":           "info",
	"technicalParameters.logFile.path":       "",
	"technicalParameters.logFile.maxSizeMb":  100,
	"technicalParameters.logFile.maxBackups": 5,
	"technicalParameters.logFile.maxAgeDays": 14,

	"export.directory":           "exports",
	"export.tablePrefix":         "ps_",
	"export.pageSize":            500,
	"export.timeBudgetSec":       25,
	"export.delimiter":           ";",
	"export.enclosure":           "\"",
	"export.utf8Bom":             true,
	"export.flushEveryRows":      1000,
	"export.createArchive":       true,
	"export.createManifest":      true,
	"export.downloadTTLHours":    24,
	"export.anonymize":           false,
	"export.anonymizeSalt":       "",
	"export.includeCustomTables": false,
	"export.maxErrorLength":      1000,

	"poller.enabled":  false,
	"poller.schedule": "@every 10s",

	"cleanup.schedule": "0 3 * * *",
	"cleanup.ttlDays":  7,

	"monitoring.enabled": true,

	"s3Storage.enabled":    false,
	"s3Storage.url":        "",
	"s3Storage.username":   "",
	"s3Storage.password":   "",
	"s3Storage.crt":        "",
	"s3Storage.bucketName": "",
	"s3Storage.useSSL":     true,
}

// LoadConfig reads the optional yaml file at path, applies EXPORTER_* environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.TechnicalParameters.InstanceId == "" {
		hostname, _ := os.Hostname()
		cfg.TechnicalParameters.InstanceId = hostname
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (e ExportConfig) DelimiterRune() rune {
	return []rune(e.Delimiter)[0]
}

func (e ExportConfig) EnclosureRune() rune {
	return []rune(e.Enclosure)[0]
}
