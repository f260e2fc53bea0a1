// Package logging provides structured slog logging with per-module levels,
// an in-memory history buffer and systemd journal output when available.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const historySize = 1000

var (
	mutex           sync.RWMutex
	globalConfig    Config
	isInitialized   bool
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	logBuffer       = NewRingBuffer(historySize)
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

// Initialize sets up the logging system. Module loggers created before
// Initialize are re-levelled and re-wired to the configured handler chain.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true

	globalLevel := parseLevel(config.Level, slog.LevelInfo)

	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevel(module, globalLevel))
		moduleLoggers[module] = slog.New(createHandler(config.Format, levelVar)).With("module", module)
	}

	defaultVar := &slog.LevelVar{}
	defaultVar.Set(globalLevel)
	slog.SetDefault(slog.New(createHandler(config.Format, defaultVar)))
}

// GetLogger returns the logger for a module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, ok := moduleLoggers[module]; ok {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()
	if logger, ok := moduleLoggers[module]; ok {
		return logger
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(moduleLevel(module, parseLevel(globalConfig.Level, slog.LevelInfo)))

	format := globalConfig.Format
	if !isInitialized {
		format = "text"
	}
	logger := slog.New(createHandler(format, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar
	return logger
}

// SetModuleLevel changes a module's log level at runtime. Unknown level
// strings are ignored.
func SetModuleLevel(module, level string) {
	mutex.Lock()
	defer mutex.Unlock()
	levelVar, ok := moduleLevelVars[module]
	if !ok {
		return
	}
	levelVar.Set(parseLevel(level, levelVar.Level()))
}

// GetBuffer returns the ring buffer of recent log entries.
func GetBuffer() *RingBuffer {
	mutex.RLock()
	defer mutex.RUnlock()
	return logBuffer
}

// moduleLevel resolves a module's level from config. Caller holds mutex.
func moduleLevel(module string, global slog.Level) slog.Level {
	if levelStr, ok := globalConfig.Modules[module]; ok {
		return parseLevel(levelStr, global)
	}
	return global
}

// createHandler builds the handler chain: stdout (text or json), journald
// when reachable, and always the history buffer.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdoutHandler slog.Handler
	if format == "json" {
		stdoutHandler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdoutHandler = slog.NewTextHandler(os.Stdout, opts)
	}

	handlers := []slog.Handler{stdoutHandler}
	if isJournalAvailable() {
		handlers = append(handlers, newJournalHandler(level))
	}
	handlers = append(handlers, newBufferHandler(logBuffer, level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return newMultiHandler(handlers...)
}

// parseLevel converts a level string, falling back when unknown.
func parseLevel(level string, fallback slog.Level) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}
