package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-r string   storage root directory
//	-m int      max upload size, bytes
//	-i int      reaper interval, minutes
//	-x int      reaper max age of staging files, minutes
//	-e string   Redis address for upload events
//
// os.Args is filtered down to these flags first so -c / -config can share
// the command line.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-s", "-r", "-m", "-i", "-x", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.StorageRoot, "r", config.StorageRoot, "storage root directory")
	fs.Int64Var(&config.MaxUploadSize, "m", config.MaxUploadSize, "max upload size (in bytes)")

	reaperInterval := fs.Int("i", int(config.ReaperInterval.Minutes()), "reaper interval (in minutes)")
	reaperMaxAge := fs.Int("x", int(config.ReaperMaxAge.Minutes()), "max age of staging files (in minutes)")

	fs.StringVar(&config.RedisAddr, "e", config.RedisAddr, "redis address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// sub-minute values from file or env survive unless the flag is given
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			config.ReaperInterval = time.Duration(*reaperInterval) * time.Minute
		case "x":
			config.ReaperMaxAge = time.Duration(*reaperMaxAge) * time.Minute
		}
	})
}
