package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	// Debug overrides Level.
	Debug   bool
	Level   string
	NoColor bool

	// File additionally writes logs to a rotated file when set.
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Output defaults to stdout.
	Output zapcore.WriteSyncer
}

func New(opts Options) (*zap.SugaredLogger, error) {
	log, _, err := Build(opts)
	return log, err
}

// Build returns the logger together with its level so it can be changed
// while running.
func Build(opts Options) (*zap.SugaredLogger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevel()
	if err := SetLevel(level, opts.Level); err != nil {
		return nil, level, err
	}
	if opts.Debug {
		level.SetLevel(zapcore.DebugLevel)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if opts.NoColor {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	output := opts.Output
	if output == nil {
		output = zapcore.Lock(os.Stdout)
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), output, level),
	}

	if opts.File != "" {
		// no colors in files
		fileConfig := encoderConfig
		fileConfig.EncodeLevel = zapcore.CapitalLevelEncoder

		rotated := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(fileConfig), zapcore.AddSync(rotated), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.Development())
	return logger.Sugar(), level, nil
}

// SetLevel parses name and applies it. An empty name means info.
func SetLevel(level zap.AtomicLevel, name string) error {
	if name == "" {
		level.SetLevel(zapcore.InfoLevel)
		return nil
	}

	parsed, err := zapcore.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	level.SetLevel(parsed)
	return nil
}
