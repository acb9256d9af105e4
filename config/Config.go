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

package config

type Config struct {
	Database            DatabaseConfig
	Security            SecurityConfig
	TechnicalParameters TechnicalParameters
	Export              ExportConfig
	Poller              PollerConfig
	Cleanup             CleanupConfig
	Monitoring          MonitoringConfig
	S3Storage           S3Config
}

type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"required"`
	Name     string `validate:"required"`
	Username string `validate:"required"`
	Password string `validate:"required" sensitive:"true"`
	PoolSize int    `validate:"gte=0,lte=200"`
}

type SecurityConfig struct {
	ApiKey         string `validate:"required,min=16" sensitive:"true"`
	AllowedOrigins []string
}

type TechnicalParameters struct {
	InstanceId    string
	BasePath      string
	ListenAddress string `validate:"required"`
	LogLevel      string `validate:"oneof=trace debug info warn warning error"`
	LogFile       LogFileConfig
}

type LogFileConfig struct {
	Path       string
	MaxSizeMb  int `validate:"gte=0"`
	MaxBackups int `validate:"gte=0"`
	MaxAgeDays int `validate:"gte=0"`
}

type ExportConfig struct {
	Directory           string `validate:"required"`
	TablePrefix         string
	PageSize            int    `validate:"gt=0,lte=10000"`
	TimeBudgetSec       int    `validate:"gt=0,lte=3600"`
	Delimiter           string `validate:"len=1,nefield=Enclosure"`
	Enclosure           string `validate:"len=1"`
	Utf8Bom             bool
	FlushEveryRows      int `validate:"gt=0"`
	CreateArchive       bool
	CreateManifest      bool
	DownloadTTLHours    int `validate:"gt=0,lte=720"`
	Anonymize           bool
	AnonymizeSalt       string `validate:"required_if=Anonymize true" sensitive:"true"`
	IncludeCustomTables bool
	MaxErrorLength      int `validate:"gt=0"`
}

type PollerConfig struct {
	Enabled  bool
	Schedule string `validate:"required_if=Enabled true"`
}

type CleanupConfig struct {
	Schedule string `validate:"required"`
	TTLDays  int    `validate:"gt=0"`
}

type MonitoringConfig struct {
	Enabled bool
}

type S3Config struct {
	Enabled    bool
	Url        string `validate:"required_if=Enabled true"`
	Username   string
	Password   string `sensitive:"true"`
	Crt        string
	BucketName string `validate:"required_if=Enabled true"`
	UseSSL     bool
}
