// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file expect in compliance with the License.
package cli

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"kmkit.sh/config"
	"kmkit.sh/iostreams"
	"kmkit.sh/log"
)

// fileHook copies every entry to a rotated log file as JSON, independently of
// the formatter used on the terminal.
type fileHook struct {
	w         io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	_, err = h.w.Write(b)
	return err
}

// fileSink is the rotating writer of one log file. Every logger writing to
// the file shares it, so only one writer ever rotates the file.
type fileSink struct {
	mu sync.Mutex
	w  *lumberjack.Logger
}

var fileSinks = struct {
	sync.Mutex
	m map[string]*fileSink
}{m: map[string]*fileSink{}}

func (s *fileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p)
}

// reset switches to the rotation settings of next. The current writer is kept
// when they are unchanged and closed otherwise.
func (s *fileSink) reset(next *lumberjack.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w != nil {
		if s.w.MaxSize == next.MaxSize &&
			s.w.MaxBackups == next.MaxBackups &&
			s.w.MaxAge == next.MaxAge &&
			s.w.Compress == next.Compress {
			return
		}

		_ = s.w.Close()
	}

	s.w = next
}

// sharedFileSink returns the sink of the configured log file, creating it on
// first use.
func sharedFileSink(cfg *config.Config) *fileSink {
	filename := config.ExpandPath(cfg.Log.File)

	fileSinks.Lock()
	defer fileSinks.Unlock()

	sink, ok := fileSinks.m[filename]
	if !ok {
		sink = &fileSink{}
		fileSinks.m[filename] = sink
	}

	sink.reset(&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	return sink
}

func textFormatter(timestamps bool) *log.TextFormatter {
	formatter := new(log.TextFormatter)
	formatter.DisableTimestamp = !timestamps
	if timestamps {
		formatter.TimestampFormat = "15:04:05"
	}

	return formatter
}

// NewLogger builds the logger described by the log section of cfg. Entries
// go to the error stream of streams so that standard output only carries the
// rendered artifacts.
func NewLogger(cfg *config.Config, streams *iostreams.IOStreams) (*logrus.Entry, error) {
	logger := logrus.New()

	switch log.LoggerTypeFromString(cfg.Log.Type) {
	case log.QUIET:
		logger.Formatter = new(logrus.TextFormatter)
		logger.Level = logrus.ErrorLevel

	case log.BASIC:
		formatter := textFormatter(cfg.Log.Timestamps)
		formatter.DisableColors = true
		logger.Formatter = formatter

	case log.FANCY:
		formatter := textFormatter(cfg.Log.Timestamps)
		formatter.ForceFormatting = true
		if cfg.NoColor {
			formatter.DisableColors = true
		}
		logger.Formatter = formatter

	case log.JSON:
		formatter := new(logrus.JSONFormatter)
		formatter.DisableTimestamp = !cfg.Log.Timestamps
		logger.Formatter = formatter
	}

	if log.LoggerTypeFromString(cfg.Log.Type) != log.QUIET {
		logger.Level = log.LevelFromString(cfg.Log.Level)
	}

	if streams != nil {
		logger.SetOutput(streams.ErrOut)
	} else {
		logger.SetOutput(os.Stderr)
	}

	if cfg.Log.File != "" {
		logger.AddHook(&fileHook{
			w:         sharedFileSink(cfg),
			formatter: &logrus.JSONFormatter{},
		})
	}

	return logrus.NewEntry(logger), nil
}
