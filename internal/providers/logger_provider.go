package providers

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"tosctl/internal/structures"
)

type TypeEnum string

const (
	TypeApp      TypeEnum = "app"
	TypeRemote   TypeEnum = "remote"
	TypeLocal    TypeEnum = "local"
	TypeWorkflow TypeEnum = "workflow"
	TypeCli      TypeEnum = "cli"
)

type Logger interface {
	Debugf(t TypeEnum, format string, args ...interface{})
	Infof(t TypeEnum, format string, args ...interface{})
	Warnf(t TypeEnum, format string, args ...interface{})
	Errorf(t TypeEnum, format string, args ...interface{})
	Fatalf(t TypeEnum, format string, args ...interface{})
	Close()
}

type LogProvider struct {
	logger zerolog.Logger
	file   *os.File
}

// NewLogProvider builds the zerolog-backed logger. Output goes to stderr as
// a console stream; when a log directory is configured, a log file is used
// instead so CLI output stays clean for piping.
func NewLogProvider(conf *structures.Config) (Logger, error) {
	level, err := zerolog.ParseLevel(conf.Logger.Level)
	if err != nil {
		return nil, err
	}
	if conf.Debug {
		level = zerolog.DebugLevel
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	var file *os.File
	if conf.Logger.Dir != "" {
		if err := os.MkdirAll(conf.Logger.Dir, 0o755); err != nil {
			return nil, err
		}
		mode := os.FileMode(conf.Logger.Mode)
		if mode == 0 {
			mode = 0o644
		}
		file, err = os.OpenFile(
			filepath.Join(conf.Logger.Dir, conf.AppName+".log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND,
			mode,
		)
		if err != nil {
			return nil, err
		}
		w = file
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &LogProvider{logger: logger, file: file}, nil
}

func (l *LogProvider) Debugf(t TypeEnum, format string, args ...interface{}) {
	l.logger.Debug().Str("type", string(t)).Msgf(format, args...)
}

func (l *LogProvider) Infof(t TypeEnum, format string, args ...interface{}) {
	l.logger.Info().Str("type", string(t)).Msgf(format, args...)
}

func (l *LogProvider) Warnf(t TypeEnum, format string, args ...interface{}) {
	l.logger.Warn().Str("type", string(t)).Msgf(format, args...)
}

func (l *LogProvider) Errorf(t TypeEnum, format string, args ...interface{}) {
	l.logger.Error().Str("type", string(t)).Msgf(format, args...)
}

func (l *LogProvider) Fatalf(t TypeEnum, format string, args ...interface{}) {
	l.logger.Fatal().Str("type", string(t)).Msgf(format, args...)
}

func (l *LogProvider) Close() {
	if l.file != nil {
		l.file.Close()
	}
}
