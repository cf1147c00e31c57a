package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestNewServiceRejectsBadSpec(t *testing.T) {
	_, err := NewService("every day", func(context.Context) error { return nil }, quietLogger)
	assert.Error(t, err)
}

func TestRunNowRecordsStatus(t *testing.T) {
	fail := true
	s, err := NewService("0 * * * *", func(context.Context) error {
		if fail {
			return errors.New("csv unreadable")
		}
		return nil
	}, quietLogger)
	require.NoError(t, err)

	assert.Error(t, s.RunNow(context.Background()))
	st := s.Status()
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, "csv unreadable", st.LastErr)

	fail = false
	require.NoError(t, s.RunNow(context.Background()))
	st = s.Status()
	assert.Equal(t, 2, st.Runs)
	assert.Empty(t, st.LastErr)
	assert.Equal(t, "0 * * * *", st.Schedule)
	assert.True(t, st.NextRun.After(st.LastRun))
}

func TestNext(t *testing.T) {
	s, err := NewService("30 2 * * *", func(context.Context) error { return nil }, nil)
	require.NoError(t, err)

	from := time.Date(2026, 3, 1, 3, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2026, 3, 2, 2, 30, 0, 0, time.Local), s.Next(from))
}

func TestStartStop(t *testing.T) {
	s, err := NewService("@every 1h", func(context.Context) error { return nil }, quietLogger)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		s.Start()
		s.Stop()
	})
}
