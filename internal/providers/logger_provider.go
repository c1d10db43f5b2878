package providers

import (
	"fmt"
	"os"
	"path/filepath"
	"sparkd/internal/structures"

	"github.com/rs/zerolog"
)

type TypeEnum int

const (
	TypeApp TypeEnum = iota
	TypeGet
	TypePost
)

func (t TypeEnum) String() string {
	switch t {
	case TypeGet:
		return "get"
	case TypePost:
		return "post"
	default:
		return "app"
	}
}

func GetLogTypeByRequestType(method string) TypeEnum {
	if method == "POST" {
		return TypePost
	}
	return TypeGet
}

type Logger interface {
	Errorf(t TypeEnum, format string, args ...interface{})
	Warnf(t TypeEnum, format string, args ...interface{})
	Infof(t TypeEnum, format string, args ...interface{})
	Debugf(t TypeEnum, format string, args ...interface{})
	Fatalf(t TypeEnum, format string, args ...interface{})
	Close()
}

type LogProvider struct {
	app     zerolog.Logger
	access  zerolog.Logger
	appFile *os.File
	accFile *os.File
}

func NewLogProvider(conf *structures.Config) (Logger, error) {
	level, err := zerolog.ParseLevel(conf.Logger.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", conf.Logger.Level, err)
	}

	mode := os.FileMode(conf.Logger.Mode)
	appFile, err := openLogFile(filepath.Join(conf.Logger.Dir, "app.log"), mode)
	if err != nil {
		return nil, err
	}
	accFile, err := openLogFile(filepath.Join(conf.Logger.Dir, "access.log"), mode)
	if err != nil {
		appFile.Close()
		return nil, err
	}

	return &LogProvider{
		app:     zerolog.New(appFile).Level(level).With().Timestamp().Logger(),
		access:  zerolog.New(accFile).Level(level).With().Timestamp().Logger(),
		appFile: appFile,
		accFile: accFile,
	}, nil
}

func openLogFile(path string, mode os.FileMode) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return file, nil
}

func (l *LogProvider) byType(t TypeEnum) *zerolog.Logger {
	if t == TypeApp {
		return &l.app
	}
	return &l.access
}

func (l *LogProvider) Errorf(t TypeEnum, format string, args ...interface{}) {
	l.byType(t).Error().Str("type", t.String()).Msgf(format, args...)
}

func (l *LogProvider) Warnf(t TypeEnum, format string, args ...interface{}) {
	l.byType(t).Warn().Str("type", t.String()).Msgf(format, args...)
}

func (l *LogProvider) Infof(t TypeEnum, format string, args ...interface{}) {
	l.byType(t).Info().Str("type", t.String()).Msgf(format, args...)
}

func (l *LogProvider) Debugf(t TypeEnum, format string, args ...interface{}) {
	l.byType(t).Debug().Str("type", t.String()).Msgf(format, args...)
}

func (l *LogProvider) Fatalf(t TypeEnum, format string, args ...interface{}) {
	l.byType(t).Fatal().Str("type", t.String()).Msgf(format, args...)
}

func (l *LogProvider) Close() {
	if l.appFile != nil {
		_ = l.appFile.Close()
	}
	if l.accFile != nil {
		_ = l.accFile.Close()
	}
}
