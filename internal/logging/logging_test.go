package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewParsesLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug", &bytes.Buffer{}).GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("nonsense", &bytes.Buffer{}).GetLevel())
}

func TestForAddsSearchID(t *testing.T) {
	var buffer bytes.Buffer
	logger := New("info", &buffer)

	ctx := ContextWithSearchID(context.Background(), "01ABC")
	For(ctx, logger).Info("searching")

	assert.Contains(t, buffer.String(), "search_id=01ABC")
	assert.Contains(t, buffer.String(), "msg=searching")
}

func TestForWithoutSearchID(t *testing.T) {
	var buffer bytes.Buffer
	logger := New("info", &buffer)

	For(context.Background(), logger).Info("plain")
	assert.NotContains(t, buffer.String(), "search_id")

	assert.NotPanics(t, func() { For(context.Background(), nil).Info("dropped") })
}

func TestTrackLogsDuration(t *testing.T) {
	var buffer bytes.Buffer
	logger := New("debug", &buffer)

	done := Track(logrus.NewEntry(logger), "search")
	done()

	assert.Contains(t, buffer.String(), "search completed")
	assert.Contains(t, buffer.String(), "duration=")
}
