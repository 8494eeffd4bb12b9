package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const envPrefix = "FILEKEEPER_"

type lookupFunc func(key string) (string, bool)

func lookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

// parseEnv overlays FILEKEEPER_* variables. JWT_SECRET_KEY is honoured as
// an alias for the secret, with FILEKEEPER_SECRET_KEY taking precedence.
func parseEnv(config *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	str("HTTP_ADDR", &config.EndpointAddrHTTP)
	str("GRPC_ADDR", &config.EndpointAddrGRPC)
	str("DATABASE_DSN", &config.DatabaseDSN)
	if v, ok := lookup("JWT_SECRET_KEY"); ok && v != "" {
		config.SecretKey = v
	}
	str("SECRET_KEY", &config.SecretKey)
	str("STORAGE_ROOT", &config.StorageRoot)
	str("STAGING_DIR", &config.StagingDir)
	str("FINAL_DIR", &config.FinalDir)
	str("REDIS_ADDR", &config.RedisAddr)
	str("REDIS_STREAM", &config.RedisStream)

	if v, ok := lookup(envPrefix + "ALLOW_INSECURE_SECRET"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sALLOW_INSECURE_SECRET: %w", envPrefix, err)
		}
		config.AllowInsecureSecret = b
	}

	for name, dst := range map[string]*int64{
		"MAX_UPLOAD_SIZE":  &config.MaxUploadSize,
		"STREAM_THRESHOLD": &config.StreamThreshold,
	} {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = n
	}

	for name, dst := range map[string]*time.Duration{
		"REAPER_INTERVAL":    &config.ReaperInterval,
		"REAPER_MAX_AGE":     &config.ReaperMaxAge,
		"RECONCILE_INTERVAL": &config.ReconcileInterval,
		"METADATA_TIMEOUT":   &config.MetadataTimeout,
	} {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}

	if v, ok := lookup(envPrefix + "EVENT_QUEUE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sEVENT_QUEUE_SIZE: %w", envPrefix, err)
		}
		config.EventQueueSize = n
	}

	return nil
}
