package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/filekeeper/internal/flagx"
	"github.com/dmitrijs2005/filekeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept either strings such as "90s" or integer nanoseconds. Absent or
// zero-valued fields leave the current setting untouched.
type JsonConfig struct {
	EndpointAddrHTTP    string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC    string         `json:"endpoint_addr_grpc"`
	DatabaseDSN         string         `json:"database_dsn"`
	SecretKey           string         `json:"secret_key"`
	AllowInsecureSecret *bool          `json:"allow_insecure_secret"`
	StorageRoot         string         `json:"storage_root"`
	StagingDir          string         `json:"staging_dir"`
	FinalDir            string         `json:"final_dir"`
	MaxUploadSize       int64          `json:"max_upload_size"`
	StreamThreshold     int64          `json:"stream_threshold"`
	ReaperInterval      timex.Duration `json:"reaper_interval"`
	ReaperMaxAge        timex.Duration `json:"reaper_max_age"`
	ReconcileInterval   timex.Duration `json:"reconcile_interval"`
	MetadataTimeout     timex.Duration `json:"metadata_timeout"`
	RedisAddr           string         `json:"redis_addr"`
	RedisStream         string         `json:"redis_stream"`
	EventQueueSize      int            `json:"event_queue_size"`
}

// parseJson overlays the file named by -c / -config, if any.
// An unreadable or malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	if err := applyJSONFile(config, jsonConfigFile); err != nil {
		panic(err)
	}
}

func applyJSONFile(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.StorageRoot, c.StorageRoot)
	setString(&config.StagingDir, c.StagingDir)
	setString(&config.FinalDir, c.FinalDir)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisStream, c.RedisStream)

	if c.AllowInsecureSecret != nil {
		config.AllowInsecureSecret = *c.AllowInsecureSecret
	}
	if c.MaxUploadSize != 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	if c.StreamThreshold != 0 {
		config.StreamThreshold = c.StreamThreshold
	}
	if c.ReaperInterval.Duration != 0 {
		config.ReaperInterval = c.ReaperInterval.Duration
	}
	if c.ReaperMaxAge.Duration != 0 {
		config.ReaperMaxAge = c.ReaperMaxAge.Duration
	}
	if c.ReconcileInterval.Duration != 0 {
		config.ReconcileInterval = c.ReconcileInterval.Duration
	}
	if c.MetadataTimeout.Duration != 0 {
		config.MetadataTimeout = c.MetadataTimeout.Duration
	}
	if c.EventQueueSize != 0 {
		config.EventQueueSize = c.EventQueueSize
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
