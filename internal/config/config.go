// Package config parses FileHorizon's hierarchical configuration:
// YAML on disk, defaulted with creasty/defaults, overlaid from the
// environment with caarlos0/env, and validated with go-playground's
// validator.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	yaml "go.yaml.in/yaml/v4"
)

// Role selects what a process instance does.
type Role string

const (
	RolePoller Role = "Poller"
	RoleWorker Role = "Worker"
	RoleAll    Role = "All"
)

// ConfigFileDefaultLocations is searched, in order, when --config is omitted.
var ConfigFileDefaultLocations = []string{
	"/etc/filehorizon/filehorizon.yml",
	"/usr/local/etc/filehorizon/filehorizon.yml",
}

type Config struct {
	Pipeline         Pipeline           `yaml:"pipeline"`
	Polling          Polling            `yaml:"polling"`
	FileSources      []FileSource       `yaml:"fileSources" validate:"dive"`
	RemoteFileSources []RemoteFileSource `yaml:"remoteFileSources" validate:"dive"`
	FileDestinations []FileDestination  `yaml:"fileDestinations" validate:"dive"`
	Routing          Routing            `yaml:"routing"`
	Transfer         Transfer           `yaml:"transfer"`
	Idempotency      Idempotency        `yaml:"idempotency"`
	Redis            Redis              `yaml:"redis"`
	Features         Features           `yaml:"pipelineFeatures"`
	ContentDetection ContentDetection   `yaml:"contentDetection"`
	Logging          Logging            `yaml:"logging"`
	Secrets          SecretsConfig      `yaml:"secrets"`
	Health           Health             `yaml:"health"`
}

type Pipeline struct {
	Role Role `yaml:"role" env:"FILEHORIZON_PIPELINE_ROLE" default:"All" validate:"oneof=Poller Worker All"`
}

type Polling struct {
	IntervalMilliseconds int `yaml:"intervalMilliseconds" default:"5000" validate:"gt=0"`
	BatchReadLimit       int `yaml:"batchReadLimit" default:"32" validate:"gt=0"`
}

type FileSource struct {
	Name                        string `yaml:"name" validate:"required"`
	Path                        string `yaml:"path" validate:"required"`
	DestinationPath             string `yaml:"destinationPath"`
	MoveAfterProcessing         bool   `yaml:"moveAfterProcessing"`
	CreateDestinationDirectories bool  `yaml:"createDestinationDirectories"`
	Recursive                   bool   `yaml:"recursive"`
	Pattern                     string `yaml:"pattern" default:"*"`
	MinStableSeconds            int    `yaml:"minStableSeconds" default:"5" validate:"gte=0"`
	Cron                        string `yaml:"cron"`
}

type RemoteFileSource struct {
	Name                 string `yaml:"name" validate:"required"`
	Protocol             string `yaml:"protocol" validate:"required,oneof=ftp sftp"`
	Host                 string `yaml:"host" validate:"required"`
	Port                 uint16 `yaml:"port"`
	Path                 string `yaml:"path" validate:"required"`
	DestinationPath      string `yaml:"destinationPath"`
	MoveAfterProcessing  bool   `yaml:"moveAfterProcessing"`
	Pattern              string `yaml:"pattern" default:"*"`
	Recursive            bool   `yaml:"recursive"`
	CredentialSecretRef  string `yaml:"credentialSecretRef" validate:"required"`
	MinStableSeconds     int    `yaml:"minStableSeconds" default:"5" validate:"gte=0"`
	Cron                 string `yaml:"cron"`
}

type FileDestination struct {
	Name    string            `yaml:"name" validate:"required"`
	Type    string            `yaml:"type" validate:"required,oneof=local sftp s3 bus"`
	Target  string            `yaml:"target" validate:"required"`
	Options map[string]string `yaml:"options"`
}

type RoutingMatch struct {
	Protocol    string `yaml:"protocol"`
	SourceName  string `yaml:"sourceName"`
	PathPattern string `yaml:"pathPattern"`
}

type RoutingDestination struct {
	Name          string `yaml:"name" validate:"required"`
	Overwrite     bool   `yaml:"overwrite"`
	ComputeHash   bool   `yaml:"computeHash"`
	RenamePattern string `yaml:"renamePattern"`
	IsTopic       bool   `yaml:"isTopic"`
}

type RoutingRule struct {
	Match         RoutingMatch         `yaml:"match"`
	Destinations  []RoutingDestination `yaml:"destinations" validate:"dive"`
	FailurePolicy string               `yaml:"failurePolicy" default:"AllOrNothing" validate:"oneof=AllOrNothing BestEffort"`
}

type Routing struct {
	Rules []RoutingRule `yaml:"rules" validate:"dive"`
}

type RetryConfig struct {
	MaxAttempts   int `yaml:"maxAttempts" default:"3" validate:"gt=0"`
	BackoffBaseMs int `yaml:"backoffBaseMs" default:"200" validate:"gt=0"`
	BackoffMaxMs  int `yaml:"backoffMaxMs" default:"10000" validate:"gt=0"`
}

type ChecksumConfig struct {
	Algorithm string `yaml:"algorithm" default:"none" validate:"oneof=none md5 sha256"`
}

type Transfer struct {
	MaxConcurrentPerDestination int            `yaml:"maxConcurrentPerDestination" default:"4" validate:"gt=0"`
	ChunkSizeBytes              int            `yaml:"chunkSizeBytes" default:"262144" validate:"gt=0"`
	Retry                       RetryConfig    `yaml:"retry"`
	Checksum                    ChecksumConfig `yaml:"checksum"`
	FailPipelineOnNotifyFailure bool           `yaml:"failPipelineOnNotifyFailure"`
}

type Idempotency struct {
	Enabled   bool `yaml:"enabled" default:"true"`
	TtlSeconds int `yaml:"ttlSeconds" default:"86400" validate:"gte=0"`
}

type Redis struct {
	Enabled                  bool   `yaml:"enabled"`
	ConnectionString         string `yaml:"connectionString" env:"FILEHORIZON_REDIS_CONNECTION_STRING"`
	StreamName               string `yaml:"streamName" default:"filehorizon:events"`
	ConsumerGroup            string `yaml:"consumerGroup" default:"filehorizon-workers"`
	DeadLetterStream         string `yaml:"deadLetterStream" default:"filehorizon:dead-letter"`
	VisibilityTimeoutSeconds int    `yaml:"visibilityTimeoutSeconds" default:"30" validate:"gt=0"`
}

type Features struct {
	EnableLocalPoller       bool `yaml:"enableLocalPoller" default:"true"`
	EnableFtpPoller         bool `yaml:"enableFtpPoller" default:"true"`
	EnableSftpPoller        bool `yaml:"enableSftpPoller" default:"true"`
	EnableFileTransfer      bool `yaml:"enableFileTransfer" default:"true"`
	EnableServiceBusIngress bool `yaml:"enableServiceBusIngress"`
	EnableServiceBusEgress  bool `yaml:"enableServiceBusEgress"`
}

type ContentDetection struct {
	EnableXml     bool `yaml:"enableXml" default:"true"`
	EnableEdifact bool `yaml:"enableEdifact" default:"true"`
}

type LogOutlet struct {
	Type  string `yaml:"type" validate:"required,oneof=stdout file"`
	Level string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Path  string `yaml:"path"`
	Color bool   `yaml:"color" default:"true"`
}

type Logging struct {
	Outlets []LogOutlet `yaml:"outlets" validate:"dive"`
}

type SecretsConfig struct {
	Resolver string `yaml:"resolver" default:"env" validate:"oneof=env file"`
	FileDir  string `yaml:"fileDir"`
}

type Health struct {
	ListenAddress string `yaml:"listenAddress" default:":8080"`
	MetricsPath   string `yaml:"metricsPath" default:"/metrics"`
}

// New returns a Config with defaults applied but nothing else set.
func New() (*Config, error) {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("config: set defaults: %w", err)
	}
	return c, nil
}

// Load reads, defaults, overlays from environment, and validates the
// configuration at path. An empty path searches
// ConfigFileDefaultLocations.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, l := range ConfigFileDefaultLocations {
			if stat, err := os.Stat(l); err == nil && stat.Mode().IsRegular() {
				path = l
				break
			}
		}
	}
	if path == "" {
		return nil, fmt.Errorf("config: no config file found in default locations")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return ParseBytes(b)
}

// ParseBytes defaults, unmarshals, overlays env, and validates raw
// YAML bytes.
func ParseBytes(b []byte) (*Config, error) {
	c, err := New()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	var entries []any
	for i := range c.FileSources {
		entries = append(entries, &c.FileSources[i])
	}
	for i := range c.RemoteFileSources {
		entries = append(entries, &c.RemoteFileSources[i])
	}
	for i := range c.Routing.Rules {
		entries = append(entries, &c.Routing.Rules[i])
	}
	for _, e := range entries {
		if err := defaults.Set(e); err != nil {
			return nil, fmt.Errorf("config: set defaults: %w", err)
		}
	}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("config: env overlay: %w", err)
	}
	if err := Validator().Struct(c); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return c, nil
}

var validate *validator.Validate

// Validator returns the process-wide validator, configured to report
// yaml tag names (not Go field names) in error messages.
func Validator() *validator.Validate {
	if validate == nil {
		validate = newValidator()
	}
	return validate
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
