// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package logging builds the root go-ethereum logger from the log section of
// the configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/zerowaste-dao/govcore/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel converts a level name into a log level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "trce":
		return log.LevelTrace, nil
	case "debug", "dbug":
		return log.LevelDebug, nil
	case "", "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error", "eror":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	}
	return log.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New returns a logger configured by cfg together with the closer of its
// output. Without a file the logger writes to stderr, in colour when stderr
// is a terminal.
func New(cfg config.LogConfig) (log.Logger, io.Closer, error) {
	var (
		out      io.Writer = os.Stderr
		closer   io.Closer = nopCloser{}
		useColor bool
	)
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		out, closer = rotator, rotator
	} else {
		fd := os.Stderr.Fd()
		useColor = (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && os.Getenv("TERM") != "dumb"
		if useColor {
			out = colorable.NewColorableStderr()
		}
	}

	handler, err := NewHandler(cfg, out, useColor)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return log.NewLogger(handler), closer, nil
}

// NewHandler builds the filtered handler writing to out.
func NewHandler(cfg config.LogConfig, out io.Writer, useColor bool) (slog.Handler, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var inner slog.Handler
	switch cfg.Format {
	case "", "terminal":
		inner = log.NewTerminalHandler(out, useColor)
	case "json":
		inner = log.JSONHandler(out)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	glogger := log.NewGlogHandler(inner)
	glogger.Verbosity(level)
	if cfg.Vmodule != "" {
		if err := glogger.Vmodule(cfg.Vmodule); err != nil {
			return nil, fmt.Errorf("invalid vmodule %q: %w", cfg.Vmodule, err)
		}
	}
	return glogger, nil
}

// Setup installs the configured logger as the default logger.
func Setup(cfg config.LogConfig) (io.Closer, error) {
	logger, closer, err := New(cfg)
	if err != nil {
		return nil, err
	}
	log.SetDefault(logger)
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
