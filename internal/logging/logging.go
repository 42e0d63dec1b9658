package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Level  string
	Format string
	// File receives log output. Empty means stderr.
	File string
	// Quiet discards everything when File is empty, for full-screen modes
	// that own the terminal.
	Quiet bool
}

// New builds a production logger configured from opts.
func New(opts Options) (*zap.Logger, error) {
	if opts.Quiet && strings.TrimSpace(opts.File) == "" {
		return zap.NewNop(), nil
	}

	cfg := zap.NewProductionConfig()
	lvl := strings.TrimSpace(opts.Level)
	if lvl == "" {
		lvl = "info"
	}
	level, err := zapcore.ParseLevel(lvl)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	case "json":
		cfg.Encoding = "json"
	default:
		return nil, fmt.Errorf("log format %q: want console or json", opts.Format)
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil

	out := "stderr"
	if f := strings.TrimSpace(opts.File); f != "" {
		out = f
	}
	cfg.OutputPaths = []string{out}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
