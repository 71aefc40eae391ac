// Package logging configures the global zerolog logger from command line settings.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	WithCaller bool   `mapstructure:"with-caller"`
	Level      string `mapstructure:"log-level"`
	LogFormat  string `mapstructure:"log-format"`
	LogFile    string `mapstructure:"log-file"`
	Verbose    bool   `mapstructure:"verbose"`
}

func DefaultConfig() Config {
	return Config{
		Level:     "info",
		LogFormat: "text",
	}
}

// Init replaces the global logger. It writes to stderr, and additionally to a
// rotated plain-text file when LogFile is set.
func Init(config Config) error {
	return InitWithWriter(config, os.Stderr)
}

func InitWithWriter(config Config, out io.Writer) error {
	level, err := parseLevel(config.Level, config.Verbose)
	if err != nil {
		return err
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	// default is json
	var logWriter io.Writer
	switch config.LogFormat {
	case "text", "":
		logWriter = zerolog.ConsoleWriter{Out: out}
	case "json":
		logWriter = out
	default:
		return errors.Errorf("unknown log format %q", config.LogFormat)
	}

	if config.LogFile != "" {
		logWriter = io.MultiWriter(
			logWriter,
			zerolog.ConsoleWriter{
				NoColor: true,
				Out: &lumberjack.Logger{
					Filename:   config.LogFile,
					MaxSize:    10, // megabytes
					MaxBackups: 3,
					MaxAge:     28, //days
				},
			})
	}

	logger := zerolog.New(logWriter).With().Timestamp()
	if config.WithCaller {
		logger = logger.Caller()
	}
	log.Logger = logger.Logger()
	zerolog.SetGlobalLevel(level)

	return nil
}

func parseLevel(level string, verbose bool) (zerolog.Level, error) {
	level = strings.ToLower(level)
	if verbose && level != "trace" {
		level = "debug"
	}
	switch level {
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "fatal":
		return zerolog.FatalLevel, nil
	default:
		return zerolog.NoLevel, errors.Errorf("unknown log level %q", level)
	}
}
