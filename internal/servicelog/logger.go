// Package servicelog provides a Logger that writes to a rotating file via
// zap + lumberjack, optionally also forwarding to an OS service host's
// logger when running under cmd/ocrsuited.
package servicelog

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/kardianos/service"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"
)

type lumberjackSink struct {
	*lumberjack.Logger
}

func (lumberjackSink) Sync() error {
	return nil
}

// Attrib appends one key=value pair to a log line.
type Attrib func(sb *strings.Builder)

func printer(name string, val interface{}) Attrib {
	return func(sb *strings.Builder) {
		sb.WriteString(", ")
		sb.WriteString(name)
		sb.WriteString("=")
		fmt.Fprintf(sb, "%v", val)
	}
}

func String(name, value string) Attrib        { return printer(name, value) }
func Error(err error) Attrib                  { return printer("error", err) }
func Bool(name string, value bool) Attrib     { return printer(name, value) }
func Any(name string, value interface{}) Attrib { return printer(name, value) }
func Int(name string, value int) Attrib       { return printer(name, value) }
func Int64(name string, value int64) Attrib   { return printer(name, value) }
func Time(name string, value time.Time) Attrib { return printer(name, value) }
func Duration(name string, value time.Duration) Attrib { return printer(name, value) }

// Logger is a structured logger decoupled from any particular sink, so the
// same call sites work whether or not an OS service host is present.
type Logger interface {
	With(attrs ...Attrib) Logger
	Info(msg string, attrs ...Attrib)
	Error(msg string, attrs ...Attrib)
	Warn(msg string, attrs ...Attrib)
	Debug(msg string, attrs ...Attrib)
	Fatal(msg string, attrs ...Attrib)
}

// New builds a Logger that writes to logFolder/ocrsuite.log through zap +
// lumberjack. root may be nil (cmd/ocrsuite one-shot mode); when set
// (cmd/ocrsuited under an OS service host), errors and warnings are also
// forwarded to it so they reach the platform's service log (syslog/Event
// Log/launchd).
func New(root service.Logger, debug bool, logFolder string) Logger {
	sinkName := "ocrsuite-lumberjack"
	zap.RegisterSink(sinkName, func(u *url.URL) (zap.Sink, error) {
		return lumberjackSink{
			Logger: &lumberjack.Logger{
				Filename:   u.Path,
				MaxSize:    100,
				MaxBackups: 5,
				MaxAge:     28,
			},
		}, nil
	})

	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	logPath := filepath.Join(logFolder, "ocrsuite.log")
	config.OutputPaths = []string{sinkName + "://" + logPath}

	zl, err := config.Build()
	if err != nil {
		panic(err)
	}

	return &zapLogger{zap: zl, root: root, debug: debug}
}

// zapLogger is the concrete Logger backing New; it fans every call out to
// zap and, when present, to the OS service host.
type zapLogger struct {
	zap   *zap.Logger
	root  service.Logger
	debug bool
	attrs []Attrib
}

func (l *zapLogger) render(msg string, attrs ...Attrib) string {
	var sb strings.Builder
	sb.WriteString(msg)
	for _, a := range l.attrs {
		a(&sb)
	}
	for _, a := range attrs {
		a(&sb)
	}
	return sb.String()
}

func (l *zapLogger) Info(msg string, attrs ...Attrib) {
	l.zap.Info(l.render(msg, attrs...))
}

func (l *zapLogger) Warn(msg string, attrs ...Attrib) {
	rendered := l.render(msg, attrs...)
	l.zap.Warn(rendered)
	if l.root != nil {
		_ = l.root.Warning(rendered)
	}
}

func (l *zapLogger) Error(msg string, attrs ...Attrib) {
	rendered := l.render(msg, attrs...)
	l.zap.Error(rendered)
	if l.root != nil {
		_ = l.root.Error(rendered)
	}
}

func (l *zapLogger) Fatal(msg string, attrs ...Attrib) {
	rendered := l.render(msg, attrs...)
	if l.root != nil {
		_ = l.root.Error(rendered)
	}
	l.zap.Fatal(rendered)
}

func (l *zapLogger) Debug(msg string, attrs ...Attrib) {
	if l.debug {
		l.zap.Debug(l.render(msg, attrs...))
	}
}

func (l *zapLogger) With(attrs ...Attrib) Logger {
	merged := make([]Attrib, 0, len(l.attrs)+len(attrs))
	merged = append(merged, l.attrs...)
	merged = append(merged, attrs...)
	return &zapLogger{zap: l.zap, root: l.root, debug: l.debug, attrs: merged}
}
