package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/macroplan/internal/config"
)

const recentLimit = 200

// Logger writes structured entries to .macroplan/logs/macroplan.log and keeps
// the most recent lines in memory for the TUI log panel.
type Logger struct {
	sugar *zap.SugaredLogger
	file  *os.File
	path  string
	now   func() time.Time

	mu     sync.Mutex
	recent []string
}

// New creates (or reuses) the log file for the project directory.
func New(projectDir string) (*Logger, error) {
	logDir := filepath.Join(projectDir, config.ProjectDirName, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	return Open(filepath.Join(logDir, "macroplan.log"))
}

// Open appends to the log file at path.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), zapcore.DebugLevel)
	return &Logger{
		sugar: zap.New(core).Sugar(),
		file:  f,
		path:  path,
		now:   time.Now,
	}, nil
}

// NewConsole logs human-readable entries to w, for one-shot commands that
// should not touch the log file.
func NewConsole(w io.Writer) *Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), zapcore.InfoLevel)
	return &Logger{
		sugar: zap.New(core).Sugar(),
		now:   time.Now,
	}
}

// Path returns the file backing this logger.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close flushes and releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.sugar == nil {
		return nil
	}
	_ = l.sugar.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Infof records an informational entry.
func (l *Logger) Infof(format string, args ...any) {
	l.log(zapcore.InfoLevel, format, args...)
}

// Warnf records a warning.
func (l *Logger) Warnf(format string, args ...any) {
	l.log(zapcore.WarnLevel, format, args...)
}

// Errorf records an error.
func (l *Logger) Errorf(format string, args ...any) {
	l.log(zapcore.ErrorLevel, format, args...)
}

// Tail returns up to maxLines of the most recent entries, oldest first.
func (l *Logger) Tail(maxLines int) []string {
	if l == nil || maxLines <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lines := l.recent
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}

func (l *Logger) log(level zapcore.Level, format string, args ...any) {
	if l == nil || l.sugar == nil {
		return
	}
	message := strings.TrimSpace(fmt.Sprintf(format, args...))
	switch level {
	case zapcore.WarnLevel:
		l.sugar.Warn(message)
	case zapcore.ErrorLevel:
		l.sugar.Error(message)
	default:
		l.sugar.Info(message)
	}
	line := fmt.Sprintf("%s %-5s %s", l.now().Format("15:04:05"), level.CapitalString(), message)
	l.mu.Lock()
	l.recent = append(l.recent, line)
	if len(l.recent) > recentLimit {
		l.recent = append([]string(nil), l.recent[len(l.recent)-recentLimit:]...)
	}
	l.mu.Unlock()
}
