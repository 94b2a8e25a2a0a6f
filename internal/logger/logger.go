package logger

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the encoding and threshold of the process logger.
type Options struct {
	// Env "prod" writes JSON at info; "local", "dev", "test" and "docker" write console output at debug.
	Env string
	// Level overrides the environment threshold: debug, info, warn or error.
	Level string
	// Output defaults to stderr.
	Output io.Writer
}

var consoleEnvs = map[string]bool{"local": true, "dev": true, "test": true, "docker": true}

// New builds the logger every service entry is written through. Entries carry the env field,
// and error entries carry a stack trace.
func New(opts Options) (*zap.Logger, error) {
	structured := opts.Env == "prod"
	if !structured && !consoleEnvs[opts.Env] {
		return nil, fmt.Errorf("unknown environment %q for logger", opts.Env)
	}

	threshold := zapcore.DebugLevel
	encCfg := zap.NewDevelopmentEncoderConfig()
	if structured {
		threshold = zapcore.InfoLevel
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if opts.Level != "" {
		if err := threshold.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	enc := zapcore.NewConsoleEncoder(encCfg)
	if structured {
		enc = zapcore.NewJSONEncoder(encCfg)
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(out)), threshold)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(zap.String("env", opts.Env)), nil
}
