package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/vanishing-point/internal/batch"
	"github.com/ironsheep/vanishing-point/internal/config"
	"github.com/ironsheep/vanishing-point/internal/imaging"
	"github.com/ironsheep/vanishing-point/internal/server"
	"github.com/ironsheep/vanishing-point/internal/store"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "batch":
		err = runBatch(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "--version", "-v", "version":
		fmt.Printf("vpdetect %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
	case "--help", "-h", "help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("vpdetect %s: %v", os.Args[1], err)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "vpdetect - vanishing point detection")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  vpdetect batch [options]   Annotate every image in a directory")
	fmt.Fprintln(w, "  vpdetect serve [options]   Run the MCP tool server on stdin/stdout")
	fmt.Fprintln(w, "  vpdetect version           Print version information")
	fmt.Fprintln(w, "  vpdetect help              Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'vpdetect batch -h' for batch options.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  VPDETECT_LOG_LEVEL=debug    Enable debug logging")
}

func debugEnabled() bool {
	return os.Getenv("VPDETECT_LOG_LEVEL") == "debug"
}

// batchFlags holds command line overrides. Empty values keep the config file's.
type batchFlags struct {
	configPath string
	input      string
	output     string
	calib      string
	strategy   string
	workers    int
	db         string
	backend    string
}

func parseBatchFlags(args []string) (*batchFlags, error) {
	f := &batchFlags{}
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.input, "input", "", "Directory of input images")
	fs.StringVar(&f.output, "output", "", "Directory for annotated images")
	fs.StringVar(&f.calib, "calib", "", "Directory of <image stem>.txt calibration files")
	fs.StringVar(&f.strategy, "strategy", "", "Estimation strategy: single or multi")
	fs.IntVar(&f.workers, "workers", 0, "Images processed in parallel (0 = config or CPU count)")
	fs.StringVar(&f.db, "db", "", "SQLite file recording the run")
	fs.StringVar(&f.backend, "backend", "", "Line detection backend: native or opencv")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return f, nil
}

// loadConfig reads the config file, if any, and applies the flag overrides.
func loadConfig(f *batchFlags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(f.configPath); err != nil {
			return nil, err
		}
	}
	if f.input != "" {
		cfg.Batch.InputDir = f.input
	}
	if f.output != "" {
		cfg.Batch.OutputDir = f.output
	}
	if f.calib != "" {
		cfg.Batch.CalibrationDir = f.calib
	}
	if f.strategy != "" {
		cfg.Batch.Strategy = f.strategy
	}
	if f.workers > 0 {
		cfg.Batch.Workers = f.workers
	}
	if f.db != "" {
		cfg.Batch.ResultsDB = f.db
	}
	if f.backend != "" {
		cfg.Hough.Backend = f.backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newRunner builds a batch runner from cfg. The returned close function
// releases the results store.
func newRunner(cfg *config.Config) (*batch.Runner, func() error, error) {
	if cfg.Batch.InputDir == "" || cfg.Batch.OutputDir == "" {
		return nil, nil, fmt.Errorf("input and output directories are required (-input, -output)")
	}
	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, nil, err
	}
	style, err := cfg.Style()
	if err != nil {
		return nil, nil, err
	}

	r := &batch.Runner{
		InputDir:           cfg.Batch.InputDir,
		OutputDir:          cfg.Batch.OutputDir,
		CalibrationDir:     cfg.Batch.CalibrationDir,
		RequireCalibration: cfg.Batch.Strategy == config.StrategyMulti,
		Strategy:           strategy,
		Style:              style,
		DrawLines:          cfg.Render.DrawLines,
		Workers:            cfg.WorkerCount(),
		Cache:              imaging.NewImageCache(),
	}

	closeFn := func() error { return nil }
	if cfg.Batch.ResultsDB != "" {
		st, err := store.Open(cfg.Batch.ResultsDB)
		if err != nil {
			return nil, nil, err
		}
		r.Store = st
		closeFn = st.Close
	}
	return r, closeFn, nil
}

func runBatch(args []string) error {
	f, err := parseBatchFlags(args)
	if err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	r, closeStore, err := newRunner(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Printf("failed to close results db: %v", err)
		}
	}()

	if debugEnabled() {
		log.Printf("vpdetect %s: strategy %s, backend %s, %d workers",
			Version, cfg.Batch.Strategy, cfg.Hough.Backend, r.Workers)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum, err := r.Run(ctx)
	if sum != nil {
		log.Printf("Processed %d images: %d found, %d without vanishing point, %d failed, %d skipped",
			sum.Processed, sum.Found, sum.NotFound, sum.Failed, sum.Skipped)
		if sum.RunID != "" {
			log.Printf("Run %s recorded in %s", sum.RunID, cfg.Batch.ResultsDB)
		}
	}
	return err
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	cfg, err := loadConfig(&batchFlags{configPath: *configPath})
	if err != nil {
		return err
	}

	if debugEnabled() {
		log.Printf("vpdetect MCP server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	server.Version = Version
	srv := server.NewWithConfig(cfg)
	return srv.Run()
}
