// Package logger builds the service logger: an ectologger front backed by zap
package logger

import (
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds an ectologger whose sink writes structured entries through zap
func New(level string, pretty bool) (ectologger.Logger, error) {
	var zcfg zap.Config
	if pretty {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(parsed)

	z, err := zcfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return ectologger.NewEctoLogger(zapSink(z.Sugar())), nil
}

func zapSink(sugar *zap.SugaredLogger) func(ectologger.EctoLogMessage) {
	return func(msg ectologger.EctoLogMessage) {
		fields := make([]any, 0, len(msg.Fields)*2+2)
		for k, v := range msg.Fields {
			fields = append(fields, k, v)
		}
		if msg.Err != nil {
			fields = append(fields, "error", msg.Err)
		}

		switch strings.ToLower(fmt.Sprint(msg.Level)) {
		case "debug":
			sugar.Debugw(msg.Message, fields...)
		case "warn", "warning":
			sugar.Warnw(msg.Message, fields...)
		case "error":
			sugar.Errorw(msg.Message, fields...)
		case "fatal":
			sugar.Fatalw(msg.Message, fields...)
		default:
			sugar.Infow(msg.Message, fields...)
		}
	}
}

// NewNop returns a logger that discards everything; used in tests
func NewNop() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}
