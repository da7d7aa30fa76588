// BrowserFS mount client.
//
// Mounts a remote static file tree as a read-only FUSE filesystem:
// - metadata comes from a listing document fetched at startup
// - file content is downloaded on first access and kept for the
//   lifetime of the process
// - HTTP and S3-compatible backends
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thiagodp/BrowserFS/pkg/fusefs"
	"github.com/thiagodp/BrowserFS/pkg/httpfs"
	"github.com/thiagodp/BrowserFS/pkg/index"
	"github.com/thiagodp/BrowserFS/pkg/logging"
	"github.com/thiagodp/BrowserFS/pkg/metrics"
	"github.com/thiagodp/BrowserFS/pkg/models"
	"github.com/thiagodp/BrowserFS/pkg/transport"
)

func main() {
	mountPoint := flag.String("mount", "", "Mount point (required)")
	backend := flag.String("backend", "http", "Backend type: http or s3")
	serverURL := flag.String("server", "http://localhost:8080", "Server base URL (http backend)")
	listing := flag.String("listing", "index.json", "Listing document path or key")
	prefix := flag.String("prefix", "", "Remote key prefix for content")
	token := flag.String("token", "", "Bearer token (or BROWSERFS_TOKEN)")
	timeout := flag.Duration("timeout", 60*time.Second, "Fetch timeout")
	metricsAddr := flag.String("metrics", "", "Prometheus listen address (empty to disable)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "console", "Log format: json or console")

	s3Endpoint := flag.String("s3-endpoint", "", "S3 endpoint URL (s3 backend)")
	s3Bucket := flag.String("s3-bucket", "", "S3 bucket (s3 backend)")
	s3AccessKey := flag.String("s3-access-key", "", "S3 access key")
	s3SecretKey := flag.String("s3-secret-key", "", "S3 secret key")
	s3Region := flag.String("s3-region", "us-east-1", "S3 region")

	flag.Parse()

	if err := logging.Init(logging.Config{Level: *logLevel, Format: *logFormat}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: init logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if *mountPoint == "" {
		fmt.Fprintf(os.Stderr, "Error: -mount is required\n")
		flag.Usage()
		os.Exit(1)
	}

	if *token == "" {
		*token = os.Getenv("BROWSERFS_TOKEN")
	}
	if *token != "" {
		if exp := transport.TokenExpiry(*token); !exp.IsZero() && time.Now().After(exp) {
			logging.Warn("auth token is expired", logging.String("expired_at", exp.Format(time.RFC3339)))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		tr   transport.Transport
		root *models.ListNode
		err  error
	)

	switch *backend {
	case "http":
		httpTr := transport.NewHTTP(transport.HTTPConfig{
			BaseURL:     *serverURL,
			ListingPath: *listing,
			Timeout:     *timeout,
			AuthToken:   *token,
		})
		logging.Info("fetching listing", logging.String("server", *serverURL))
		root, err = httpTr.FetchListing(ctx)
		tr = httpTr
	case "s3":
		var s3Tr *transport.S3
		s3Tr, err = transport.NewS3(ctx, transport.S3Config{
			Endpoint:  *s3Endpoint,
			Bucket:    *s3Bucket,
			AccessKey: *s3AccessKey,
			SecretKey: *s3SecretKey,
			Region:    *s3Region,
		})
		if err == nil {
			var data []byte
			logging.Info("fetching listing", logging.String("bucket", *s3Bucket),
				logging.String("key", *listing))
			if data, err = s3Tr.FetchBytes(ctx, *listing); err == nil {
				root, err = transport.DecodeListing(data)
			}
		}
		tr = s3Tr
	default:
		logging.Fatal("unknown backend", logging.String("backend", *backend))
	}
	if err != nil {
		logging.Fatal("listing fetch failed", logging.Err(err))
	}

	idx := index.Build(root)
	logging.Info("index built", logging.Int64("nodes", int64(idx.Len())))

	fsys, err := httpfs.New(httpfs.Config{Index: idx, Transport: tr, Prefix: *prefix})
	if err != nil {
		logging.Fatal("create filesystem", logging.Err(err))
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logging.Error("metrics listener failed", logging.Err(err))
			}
		}()
		logging.Info("metrics enabled", logging.String("addr", *metricsAddr))
	}

	server, err := fusefs.Mount(*mountPoint, fsys)
	if err != nil {
		logging.Fatal("mount failed", logging.Err(err))
	}

	logging.Info("filesystem mounted (read-only)", logging.String("mount", *mountPoint))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logging.Info("unmounting")
	server.Unmount()

	stats := fsys.Stats()
	logging.Info("session stats",
		logging.Int64("size_probes", stats.SizeProbes),
		logging.Int64("content_fetches", stats.ContentFetches),
		logging.Int64("cache_hits", stats.CacheHits),
		logging.Int64("cache_misses", stats.CacheMisses))
}
