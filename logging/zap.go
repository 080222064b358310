// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger makes a *zap.Logger implement go-kit's log.Logger.
type zapLogger struct {
	*zap.Logger
}

// Zap adapts an existing zap logger.  The go-kit level and message keys are mapped onto
// the zap entry's level and message, and every other pair becomes a zap field.  Pairs
// stored under TimestampKey are dropped since zap stamps its own entries.
func Zap(l *zap.Logger) log.Logger {
	return zapLogger{Logger: l}
}

// NewZapLogger produces a go-kit Logger that encodes through a zap production JSON encoder.
// Level filtering is left to NewFilter.
func NewZapLogger(w io.Writer) log.Logger {
	return Zap(zap.New(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(w),
			zapcore.DebugLevel,
		),
	))
}

func (l zapLogger) Log(keyvals ...interface{}) error {
	var (
		lvl    = zapcore.InfoLevel
		msg    string
		fields = make([]zap.Field, 0, len(keyvals)/2)
	)

	for i := 0; i+1 < len(keyvals); i += 2 {
		k, v := keyvals[i], keyvals[i+1]
		switch k {
		case level.Key():
			lvl = zapLevel(v)
		case MessageKey():
			msg = fmt.Sprint(v)
		case TimestampKey():
		default:
			fields = append(fields, zap.Any(fmt.Sprint(k), v))
		}
	}

	if ce := l.Logger.Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}

	return nil
}

func zapLevel(v interface{}) zapcore.Level {
	lv, ok := v.(level.Value)
	if !ok {
		return zapcore.InfoLevel
	}

	switch lv.String() {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
