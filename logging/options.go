// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"io"
	"os"

	"github.com/go-kit/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	StdoutFile = "stdout"

	// FormatLogfmt is the default output format
	FormatLogfmt = "logfmt"

	// FormatJSON emits one JSON object per log event
	FormatJSON = "json"

	// FormatZap routes log events through a zap production encoder
	FormatZap = "zap"
)

// Options stores the configuration of a Logger.  Lumberjack is used for rolling files.
type Options struct {
	// File is the system file path for the log file.  If set to "stdout", this will log to os.Stdout.
	// Otherwise, a lumberjack.Logger is created
	File string `json:"file" mapstructure:"file"`

	// MaxSize is the lumberjack MaxSize
	MaxSize int `json:"maxsize" mapstructure:"maxsize"`

	// MaxAge is the lumberjack MaxAge
	MaxAge int `json:"maxage" mapstructure:"maxage"`

	// MaxBackups is the lumberjack MaxBackups
	MaxBackups int `json:"maxbackups" mapstructure:"maxbackups"`

	// Format selects the encoding of log output: logfmt, json, or zap.  The default is logfmt.
	Format string `json:"format" mapstructure:"format"`

	// Level is the error level to output: ERROR, INFO, WARN, or DEBUG.  Any unrecognized string,
	// including the empty string, is equivalent to passing ERROR.
	Level string `json:"level" mapstructure:"level"`
}

func (o *Options) output() io.Writer {
	if o != nil && len(o.File) > 0 && o.File != StdoutFile {
		return &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSize,
			MaxAge:     o.MaxAge,
			MaxBackups: o.MaxBackups,
		}
	}

	return log.NewSyncWriter(os.Stdout)
}

func (o *Options) loggerFactory() func(io.Writer) log.Logger {
	if o != nil {
		switch o.Format {
		case FormatJSON:
			return log.NewJSONLogger
		case FormatZap:
			return NewZapLogger
		}
	}

	return log.NewLogfmtLogger
}

func (o *Options) level() string {
	if o != nil {
		return o.Level
	}

	return ""
}
