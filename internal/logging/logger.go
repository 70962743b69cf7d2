package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger provides structured logging capabilities
type Logger struct {
	*slog.Logger
}

// LogLevel represents log level constants
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config represents logger configuration
type Config struct {
	Level  LogLevel
	Format string // "json" or "text"
	Output io.Writer
}

// NewLogger creates a new structured logger
func NewLogger(config Config) *Logger {
	var level slog.Level
	switch config.Level {
	case LevelDebug:
		level = slog.LevelDebug
	case LevelInfo:
		level = slog.LevelInfo
	case LevelWarn:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	output := config.Output
	if output == nil {
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if config.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// GetDefaultLogger returns a logger with sensible defaults
func GetDefaultLogger() *Logger {
	return NewLogger(Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stdout,
	})
}

// WithContext adds contextual fields to the logger
func (l *Logger) WithContext(args ...any) *Logger {
	return &Logger{
		Logger: l.With(args...),
	}
}

// WithWorker adds worker ID context
func (l *Logger) WithWorker(workerID int) *Logger {
	return l.WithContext("worker", workerID)
}

// WithSubject adds subject context
func (l *Logger) WithSubject(subject string) *Logger {
	return l.WithContext("subject", subject)
}

// WithProbe adds probe name context
func (l *Logger) WithProbe(probe string) *Logger {
	return l.WithContext("probe", probe)
}

// ConfigLoaded logs successful configuration loading
func (l *Logger) ConfigLoaded(file string) {
	l.Info("Configuration loaded", "file", file)
}

// ConfigNotFound logs when config file is not found
func (l *Logger) ConfigNotFound(file string) {
	l.Warn("Config file not found, using defaults", "file", file)
}

// SubjectsLoaded logs successful subject loading
func (l *Logger) SubjectsLoaded(count int, file string) {
	l.Info("Subjects loaded", "count", count, "file", file)
}

// CheckStart logs start of availability checking
func (l *Logger) CheckStart(total int, concurrency int) {
	l.Info("Starting availability checks", "total", total, "concurrency", concurrency)
}

// CheckComplete logs completion of availability checking
func (l *Logger) CheckComplete() {
	l.Info("Availability checking complete")
}

// ProbeResult logs the outcome of a single probe stage
func (l *Logger) ProbeResult(subject, probe, status string) {
	l.WithSubject(subject).WithProbe(probe).Debug("Probe finished", "status", status)
}

// StatusResolved logs the terminal verdict for a subject
func (l *Logger) StatusResolved(subject, status, source string, duration float64) {
	l.WithSubject(subject).Info("Status resolved",
		"status", status,
		"source", source,
		"duration_seconds", duration,
	)
}

// CheckFailure logs a failed subject check
func (l *Logger) CheckFailure(subject string, err error) {
	l.WithSubject(subject).Error("Subject check failed", "error", err)
}

// RuleSkipped logs a malformed rule that was ignored
func (l *Logger) RuleSkipped(index int, reason string) {
	l.Warn("Skipping malformed rule", "index", index, "reason", reason)
}

// RulesLoaded logs successful rule loading
func (l *Logger) RulesLoaded(count int, file string) {
	l.Info("Extra rules loaded", "count", count, "file", file)
}

// WorkerStart logs worker startup
func (l *Logger) WorkerStart(workerID int) {
	l.WithWorker(workerID).Debug("Worker started")
}

// WorkerStop logs worker shutdown
func (l *Logger) WorkerStop(workerID int) {
	l.WithWorker(workerID).Debug("Worker stopped")
}

// ShutdownReceived logs shutdown signal
func (l *Logger) ShutdownReceived() {
	l.Info("Shutdown signal received, cleaning up...")
}

// ShutdownComplete logs shutdown completion
func (l *Logger) ShutdownComplete() {
	l.Info("Shutdown complete")
}

// ResultsSaved logs when results are saved to file
func (l *Logger) ResultsSaved(file string, format string) {
	l.Info("Results saved", "file", file, "format", format)
}

// SummaryStats logs summary statistics
func (l *Logger) SummaryStats(total, up, down int, upRate float64) {
	l.Info("Summary statistics",
		"total_subjects", total,
		"up", up,
		"down", down,
		"up_rate_percent", upRate,
	)
}
