package app

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsTask(t *testing.T) {
	ran := make(chan struct{}, 4)
	s := NewScheduler(zerolog.Nop())
	require.NoError(t, s.Schedule("@every 1s", func() { ran <- struct{}{} }))
	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled task did not run")
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	assert.Error(t, s.Schedule("every now and then", func() {}))
	assert.Error(t, s.Schedule("* * *", func() {}))
}
