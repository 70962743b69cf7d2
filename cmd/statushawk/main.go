package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ResistanceIsUseless/StatusHawk/internal/checker"
	"github.com/ResistanceIsUseless/StatusHawk/internal/config"
	"github.com/ResistanceIsUseless/StatusHawk/internal/loader"
	"github.com/ResistanceIsUseless/StatusHawk/internal/logging"
	"github.com/ResistanceIsUseless/StatusHawk/internal/metrics"
	"github.com/ResistanceIsUseless/StatusHawk/internal/output"
	"github.com/ResistanceIsUseless/StatusHawk/internal/status"
	"github.com/ResistanceIsUseless/StatusHawk/internal/ui"
	"github.com/ResistanceIsUseless/StatusHawk/internal/worker"
)

var version = "dev"

func main() {
	subjectsFile := flag.String("l", "", "File containing subjects to check (one per line)")
	configFile := flag.String("config", "config.yaml", "Path to config file")
	rulesFile := flag.String("rules", "", "Extra rules file (overrides config)")
	textOut := flag.String("o", "", "Write text results to file")
	jsonOut := flag.String("j", "", "Write JSON results to file")
	upOut := flag.String("up", "", "Write subjects that resolved UP to file")
	concurrency := flag.Int("c", 0, "Number of concurrent checks (overrides config)")
	verbose := flag.Bool("v", false, "Enable verbose (debug) logging")
	noTUI := flag.Bool("no-tui", false, "Disable the interactive progress view")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("statushawk %s\n", version)
		return
	}

	if *subjectsFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: statushawk -l subjects.txt [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logLevel := logging.LevelInfo
	if *verbose {
		logLevel = logging.LevelDebug
	}
	logOutput := os.Stdout
	if !*noTUI {
		// The TUI owns stdout; keep logs out of the way.
		logOutput = os.Stderr
	}
	logger := logging.NewLogger(logging.Config{Level: logLevel, Format: "text", Output: logOutput})

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.ConfigLoaded(*configFile)

	if *concurrency > 0 {
		cfg.Concurrency = *concurrency
	}
	if *rulesFile != "" {
		cfg.ExtraRulesFile = *rulesFile
	}

	validation := config.ValidateConfig(cfg)
	for _, warning := range validation.Warnings {
		logger.Warn("Configuration warning", "warning", warning)
	}
	if !validation.Valid {
		for _, validationErr := range validation.Errors {
			logger.Error("Configuration error", "error", validationErr.Error())
		}
		os.Exit(1)
	}

	subjects, warnings, err := loader.LoadSubjects(*subjectsFile)
	if err != nil {
		logger.Error("Failed to load subjects", "error", err)
		os.Exit(1)
	}
	for _, warning := range warnings {
		logger.Warn("Subjects file warning", "warning", warning)
	}
	logger.SubjectsLoaded(len(subjects), *subjectsFile)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		if err := collector.StartServer(addr); err != nil {
			logger.Error("Failed to start metrics server", "error", err)
		} else {
			logger.Info("Metrics server listening", "addr", addr)
		}
		defer collector.StopServer()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.ShutdownReceived()
		cancel()
	}()

	factory := func() (*checker.Checker, error) {
		return checker.Build(cfg, logger)
	}
	manager := worker.NewManager(cfg.Concurrency, factory, logger, collector)

	logger.CheckStart(len(subjects), cfg.Concurrency)

	var mu sync.Mutex
	var results []*status.Status
	collect := func(st *status.Status) {
		mu.Lock()
		results = append(results, st)
		mu.Unlock()
	}

	if *noTUI {
		if err := manager.Run(ctx, subjects, collect); err != nil {
			logger.Error("Worker pool failed", "error", err)
			os.Exit(1)
		}
	} else {
		if err := runWithTUI(ctx, cancel, manager, subjects, collect, logger); err != nil {
			logger.Error("Worker pool failed", "error", err)
			os.Exit(1)
		}
	}

	logger.CheckComplete()

	summary := output.GenerateSummary(results)
	logger.SummaryStats(summary.TotalSubjects, summary.UpSubjects, summary.DownSubjects, summary.UpRate)

	if *textOut != "" {
		if err := output.WriteTextOutput(*textOut, summary); err != nil {
			logger.Error("Failed to write text output", "error", err)
		} else {
			logger.ResultsSaved(*textOut, "text")
		}
	}
	if *jsonOut != "" {
		if err := output.WriteJSONOutput(*jsonOut, summary); err != nil {
			logger.Error("Failed to write JSON output", "error", err)
		} else {
			logger.ResultsSaved(*jsonOut, "json")
		}
	}
	if *upOut != "" {
		if err := output.WriteUpSubjectsOutput(*upOut, results); err != nil {
			logger.Error("Failed to write up-subjects output", "error", err)
		} else {
			logger.ResultsSaved(*upOut, "text")
		}
	}
}

// runWithTUI drives the worker pool under the interactive progress
// view. Verdicts stream into the UI; quitting the UI cancels the pool.
func runWithTUI(
	ctx context.Context,
	cancel context.CancelFunc,
	manager *worker.Manager,
	subjects []string,
	collect worker.ResultHandler,
	logger *logging.Logger,
) error {
	model := ui.NewModel(len(subjects), version)
	program := tea.NewProgram(model)

	go func() {
		<-model.Quit
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- manager.Run(ctx, subjects, func(st *status.Status) {
			collect(st)
			program.Send(ui.VerdictMsg{Status: st})
		})
		program.Send(ui.BatchDoneMsg{})
	}()

	if _, err := program.Run(); err != nil {
		logger.Error("UI failed", "error", err)
	}
	// The pool may still be draining if the user quit early; the Quit
	// goroutine has already cancelled it.
	return <-errCh
}
