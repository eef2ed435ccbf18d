// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oblog/internal/testutil"
)

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"@every 30s", false},
		{"@daily", false},
		{"*/5 * * * *", false},
		{"", true},
		{"every minute", true},
		{"* * *", true},
	}
	for _, tt := range tests {
		err := ValidateSchedule(tt.spec)
		assert.Equal(t, tt.wantErr, err != nil, "spec %q: %v", tt.spec, err)
	}
}

func TestAdd_Rejects(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Add(Job{Name: "maintenance", Schedule: "@every 30s", Run: noop}))
	assert.Error(t, s.Add(Job{Name: "maintenance", Schedule: "@every 1m", Run: noop}), "duplicate name")
	assert.Error(t, s.Add(Job{Name: "bad", Schedule: "sometimes", Run: noop}))
	assert.Error(t, s.Add(Job{Name: "nil", Schedule: "@daily"}))
}

func TestTriggerNow_SkipsOverlappingRuns(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int64

	require.NoError(t, s.Add(Job{
		Name:     "slow",
		Schedule: "@every 1h",
		Run: func(context.Context) error {
			runs.Add(1)
			close(started)
			<-release
			return nil
		},
	}))

	done := make(chan error)
	go func() { done <- s.TriggerNow("slow") }()
	<-started

	assert.ErrorIs(t, s.TriggerNow("slow"), ErrJobRunning)
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, int64(1), runs.Load())
	info := s.List()
	require.Len(t, info, 1)
	assert.Equal(t, int64(1), info[0].Runs)
	assert.Equal(t, int64(1), info[0].Skipped)
	assert.False(t, info[0].Running)
}

func TestTriggerNow_RecordsErrorsAndTimeout(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	require.NoError(t, s.Add(Job{
		Name:     "timeout",
		Schedule: "@daily",
		Timeout:  10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}))

	err := s.TriggerNow("timeout")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, context.DeadlineExceeded.Error(), s.List()[0].LastError)

	assert.ErrorIs(t, s.TriggerNow("missing"), ErrJobNotFound)
}

func TestStart_RunsAndStopsWithContext(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	ran := make(chan struct{}, 10)
	require.NoError(t, s.Add(Job{
		Name:     "tick",
		Schedule: "@every 1s",
		Run: func(context.Context) error {
			ran <- struct{}{}
			return errors.New("ignored")
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	s.Start(ctx)

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
	assert.False(t, s.List()[0].NextRun.IsZero())

	cancel()
	require.Eventually(t, func() bool { return !s.started.Load() }, 2*time.Second, 10*time.Millisecond)
	s.Stop()
}
