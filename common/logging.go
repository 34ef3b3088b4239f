package common

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const ServiceName = "procurement"

type LogOptions struct {
	Level  string
	Format string
	// File enables a rotated log file next to stdout when not empty.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// SetupLogging configures the logrus standard logger used across the service.
func SetupLogging(opts LogOptions) (io.Closer, error) {
	logger := logrus.StandardLogger()

	level := logrus.InfoLevel
	if opts.Level != "" {
		l, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		level = l
	}
	logger.SetLevel(level)

	if strings.ToLower(opts.Format) == "json" {
		logger.Formatter = &logrus.JSONFormatter{}
	} else {
		logger.Formatter = &logrus.TextFormatter{}
	}

	logger.ReplaceHooks(logrus.LevelHooks{})
	logger.AddHook(&DefaultFieldsHook{})

	if opts.File == "" {
		logger.Out = os.Stdout
		return io.NopCloser(nil), nil
	}
	rotated := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
	}
	logger.Out = io.MultiWriter(os.Stdout, rotated)
	return rotated, nil
}

type DefaultFieldsHook struct {
}

func (hook *DefaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook *DefaultFieldsHook) Fire(e *logrus.Entry) error {
	e.Data["serviceName"] = ServiceName
	e.Data["serviceInstance"] = GetServiceInstance()
	return nil
}

func GetServiceInstance() string {
	if v := os.Getenv("SERVICE_INSTANCE"); v != "" {
		return v
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}
