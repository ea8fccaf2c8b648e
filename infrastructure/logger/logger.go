package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var logger = log.New()

func init() {
	logger.Out = os.Stdout
	env := os.Getenv("ENV")
	// LOG_TO_FILE=true writes to logs/<date><env>.log, stdout otherwise.
	if os.Getenv("LOG_TO_FILE") == "true" {
		if f, err := openLogFile(env); err != nil {
			log.Warnf("Failed to open log file: %v, falling back to stdout", err)
		} else {
			logger.Out = f
		}
	}

	Configure(os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"))
}

func openLogFile(env string) (*os.File, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	logsDir := filepath.Join(cwd, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, err
	}
	filePath := filepath.Join(logsDir, fmt.Sprintf("%s%s.log", time.Now().Format("2006-01-02"), env))
	return os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
}

// Configure sets the output format (json|text) and level. Unknown values keep
// JSON output at debug level.
func Configure(format, level string) {
	if strings.EqualFold(format, "text") {
		logger.Formatter = &log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		}
	} else {
		logger.Formatter = &log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		}
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.DebugLevel
	}
	logger.SetLevel(lvl)
}

func GetLogger() *log.Entry {
	return withCaller(2)
}

// WithScope tags log lines with the (owner, channel) scope of a sync cycle
func WithScope(ownerID, channelID string) *log.Entry {
	return withCaller(2).WithFields(log.Fields{
		"ownerId":   ownerID,
		"channelId": channelID,
	})
}

func withCaller(skip int) *log.Entry {
	function, file, line, _ := runtime.Caller(skip)

	name := ""
	if functionObject := runtime.FuncForPC(function); functionObject != nil {
		name = functionObject.Name()
	}
	return logger.WithFields(log.Fields{
		"function": name,
		"file":     file,
		"line":     line,
	})
}
