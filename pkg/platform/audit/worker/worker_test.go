package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	audit "badgeissuer/pkg/platform/audit"
	"badgeissuer/pkg/platform/audit/store/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type failingSink struct{ calls int }

func (f *failingSink) Append(context.Context, audit.Event) error {
	f.calls++
	return errors.New("unavailable")
}

func TestWorkerForwardsTeeEvents(t *testing.T) {
	primary := memory.NewInMemoryStore()
	sink := memory.NewInMemoryStore()
	tee := NewTee(primary, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewWorker(sink, tee.Events(), nil).Run(ctx) }()

	require.NoError(t, tee.Append(ctx, audit.Event{Subject: "account_1", Action: string(audit.EventBadgeIssued)}))

	require.Eventually(t, func() bool {
		events, _ := sink.ListBySubject(context.Background(), "account_1")
		return len(events) == 1
	}, time.Second, 5*time.Millisecond)

	events, err := tee.ListBySubject(context.Background(), "account_1")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWorkerSkipsFailedAppends(t *testing.T) {
	inbox := make(chan audit.Event, 2)
	inbox <- audit.Event{Action: "a"}
	inbox <- audit.Event{Action: "b"}
	close(inbox)

	sink := &failingSink{}
	require.NoError(t, NewWorker(sink, inbox, nil).Run(context.Background()))
	assert.Equal(t, 2, sink.calls)
}

func TestTeeNeverBlocks(t *testing.T) {
	tee := NewTee(memory.NewInMemoryStore(), 1)
	for range 5 {
		require.NoError(t, tee.Append(context.Background(), audit.Event{Subject: "s"}))
	}
	assert.Len(t, tee.Events(), 1)
}
