package logging

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

type ctxKey string

const searchIDKey ctxKey = "searchId"

// New builds a logger writing to out. An unknown level falls back to info.
func New(level string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
		DisableColors:   true,
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	return logger
}

// Discard is used where no logger was configured.
func Discard() *logrus.Logger {
	return New("panic", io.Discard)
}

func ContextWithSearchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, searchIDKey, id)
}

// For returns an entry carrying the search id stored in ctx, if any.
func For(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	if logger == nil {
		logger = Discard()
	}
	id, ok := ctx.Value(searchIDKey).(string)
	if !ok {
		return logrus.NewEntry(logger)
	}
	return logger.WithField("search_id", id)
}

// Track logs msg with the elapsed time when the returned func runs.
func Track(entry *logrus.Entry, msg string) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start)
		entry = entry.WithField("duration", duration.String())
		if duration > 2*time.Second {
			entry.Warnf("%s completed (slow)", msg)
			return
		}
		entry.Debugf("%s completed", msg)
	}
}
