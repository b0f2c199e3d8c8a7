package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/SA-Media/Data-Pipeline/readers"
	"github.com/SA-Media/Data-Pipeline/xmlstore"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "data-pipeline",
	Short: "Aggregates office document text into per-category XML files",
	Long: `data-pipeline walks a document tree, extracts text from PDF and DOCX
files, classifies each file as external, internal or client by its folder
path, and appends the text into one aggregated XML document per category.
Files are only reprocessed when their modification time advances past the
last recorded run.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process the document tree once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		p := a.pipeline()

		var bar *progressbar.ProgressBar
		p.progress = func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Processing documents"),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(done)
		}

		rep, err := p.Run(cmd.Context())
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			return err
		}

		fmt.Printf("Processed: %d, Skipped: %d, Errors: %d\n", rep.Processed, rep.Skipped, rep.Errored)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process the tree, then keep reprocessing as files change",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := a.pipeline()
		if _, err := p.Run(ctx); err != nil {
			return err
		}

		debounce := time.Duration(a.cfg.Watch.DebounceMs) * time.Millisecond
		return p.Watch(ctx, debounce)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the aggregated documents to MCP clients over SSE",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := NewPipelineServer(a.store)
		sse := mcpserver.NewSSEServer(srv, mcpserver.WithBaseURL(fmt.Sprintf("http://%s", a.cfg.ServerAddr)))
		a.log.Info("serving aggregates", "addr", a.cfg.ServerAddr)
		return sse.Start(a.cfg.ServerAddr)
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <path>",
	Short: "Drop a file from the tracker so the next run reprocesses it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving %s: %w", args[0], err)
		}

		return a.tracker.Forget(path)
	},
}

// app holds the wired components shared by every command.
type app struct {
	cfg     *Config
	log     *slog.Logger
	logFile *os.File
	tracker *FileTracker
	store   *xmlstore.AggregateStore
}

func newApp(cfgPath string) (*app, error) {
	cfg, err := readConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(logFile, nil))

	tracker, err := NewFileTracker(logger, cfg.TrackerFile)
	if err != nil {
		logFile.Close()
		return nil, err
	}

	store, err := xmlstore.NewAggregateStore(logger, cfg.Paths.OutputFolder, cfg.OutputFiles())
	if err != nil {
		logFile.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     logger,
		logFile: logFile,
		tracker: tracker,
		store:   store,
	}, nil
}

func (a *app) Close() {
	a.logFile.Close()
}

func (a *app) pipeline() *Pipeline {
	root := a.cfg.Paths.RootFolder
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	return &Pipeline{
		log:     a.log,
		root:    root,
		folders: a.cfg.FolderNames(),
		docExts: a.cfg.DocumentSet(),
		ignore:  a.cfg.IgnoreSet(),
		tracker: a.tracker,
		store:   a.store,
		readers: []FileReader{&readers.PDFReader{}, &readers.DocxReader{}},
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file path")
	rootCmd.AddCommand(runCmd, watchCmd, serveCmd, forgetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
