package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"vcfdb/internal/config"
	"vcfdb/internal/metrics"
	"vcfdb/internal/metrics/datadog"
	"vcfdb/internal/metrics/prompush"
	"vcfdb/internal/pipeline"
	"vcfdb/internal/storage"

	// register all backends with the storage factory.
	// the db URL picks which one to use but we build in support for all of them.
	_ "vcfdb/internal/storage/all"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (f *listFlag) String() string { return strings.Join(*f, ",") }

func (f *listFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

// main loads the run config from flags (optionally seeded from a JSON file),
// opens the storage backend, optionally wires a metrics backend, and executes
// the load.
func main() {
	var (
		cfgPath  string
		vcfPath  string
		pedPath  string
		dbURL    string
		exclude  listFlag
		expand   listFlag
		legacy   bool
		validate bool
		workers  int
		batch    int

		metricsBackendFlg string
		pushGatewayURLFlg string
		statsdAddrFlg     string
	)

	flag.StringVar(&cfgPath, "config", "", "run config JSON path (flags override it)")
	flag.StringVar(&vcfPath, "vcf", "", "input VCF path (plain or gzip)")
	flag.StringVar(&pedPath, "ped", "", "PED pedigree file path")
	flag.StringVar(&dbURL, "db", "", "database URL, e.g. postgres://u:p@host/db or out.db for sqlite")
	flag.Var(&exclude, "exclude", "INFO attribute to drop (repeatable)")
	flag.Var(&expand, "expand", "genotype attribute to expand into a wide per-sample table (repeatable)")
	flag.BoolVar(&legacy, "legacy-compression", false, "write zlib genotype blobs instead of snappy")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.IntVar(&workers, "workers", 0, "transform workers (default GOMAXPROCS)")
	flag.IntVar(&batch, "batch-size", 0, "rows buffered per flush (default 10000)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&statsdAddrFlg, "statsd-addr", "", "dogstatsd address, e.g. 127.0.0.1:8125")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	var cfg config.Config
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			fatalf("load config: %v", err)
		}
	}
	if vcfPath != "" {
		cfg.VCF = vcfPath
	}
	if pedPath != "" {
		cfg.Ped = pedPath
	}
	if dbURL != "" {
		cfg.DB = config.ParseDBURL(dbURL)
	}
	cfg.Exclude = append(cfg.Exclude, exclude...)
	cfg.Expand = append(cfg.Expand, expand...)
	if legacy {
		cfg.LegacyCompression = true
	}
	if workers > 0 {
		cfg.Runtime.TransformWorkers = workers
	}
	if batch > 0 {
		cfg.Runtime.BatchSize = batch
	}
	if metricsBackendFlg != "" {
		cfg.Metrics.Backend = metricsBackendFlg
	}
	if pushGatewayURLFlg != "" {
		cfg.Metrics.PushgatewayURL = pushGatewayURLFlg
	}
	if statsdAddrFlg != "" {
		cfg.Metrics.StatsdAddr = statsdAddrFlg
	}
	switch cfg.Metrics.Backend {
	case "prometheus", "pushgateway":
		if cfg.Metrics.PushgatewayURL == "" {
			cfg.Metrics.PushgatewayURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if cfg.Metrics.PushgatewayURL == "" {
			cfg.Metrics.PushgatewayURL = "http://localhost:9091"
		}
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid")
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid")
		os.Exit(0)
	}

	setupMetrics(cfg, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()
	start := time.Now()

	repo, err := storage.New(ctx, storage.Config{Kind: cfg.DB.Kind, DSN: cfg.DB.DSN})
	if err != nil {
		log.Fatalf("%v (supported: %s)", err, strings.Join(storage.ListKinds(), ", "))
	}
	defer repo.Close()

	if *verbose {
		log.Printf("run: vcf=%s db=%s expand=%v exclude=%v", cfg.VCF, cfg.DB.Kind, cfg.Expand, cfg.Exclude)
	}

	if err := pipeline.New(cfg, repo).Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// setupMetrics picks the metrics backend: config value, then env, then nop.
func setupMetrics(cfg config.Config, verbose bool) {
	backendName := cfg.Metrics.Backend
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway", "prometheus":
		gwURL := cfg.Metrics.PushgatewayURL
		jobName := cfg.Job
		if jobName == "" {
			jobName = "vcfdb"
		}
		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, jobName)
		metrics.SetBackend(b)

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: cfg.Metrics.StatsdAddr})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=datadog addr=%v", cfg.Metrics.StatsdAddr)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
