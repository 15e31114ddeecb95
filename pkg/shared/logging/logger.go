package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how the process-wide zap logger is constructed.
type Config struct {
	Level  string // debug|info|warn|error
	Format string // json|console
}

// New builds a zap.Logger from Config, defaulting to production JSON
// logging when Format/Level are left empty. The core never logs secrets
// (SMTP/IMAP credentials, private keys) directly; callers must redact
// those before attaching them as fields (see pkg/redact).
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zcfg.Build()
}

// FieldsToZap converts a Fields builder into zap.Field slices for
// attaching to a log call.
func FieldsToZap(f Fields) []zap.Field {
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}
