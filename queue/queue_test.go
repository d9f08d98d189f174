package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueAndAwait(t *testing.T) {
	q := New()
	defer q.Close()

	q.RegisterHandler("double", func(ctx context.Context, payload any) (any, error) {
		return payload.(int) * 2, nil
	})

	id, err := q.Enqueue("double", 21)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := q.Await(ctx, id, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, 42, job.Result)
	assert.Equal(t, 1, job.Attempts)
}

func TestRetriesBounded(t *testing.T) {
	q := New()
	defer q.Close()

	var calls atomic.Int32
	q.RegisterHandler("flaky", func(ctx context.Context, payload any) (any, error) {
		calls.Add(1)
		return nil, errors.New("transient fault")
	})

	id, err := q.Enqueue("flaky", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := q.Await(ctx, id, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, DefaultMaxAttempts, job.Attempts)
	assert.Equal(t, int32(DefaultMaxAttempts), calls.Load())
	assert.Contains(t, job.Err, "transient fault")
}

func TestRetrySucceedsSecondAttempt(t *testing.T) {
	q := New()
	defer q.Close()

	var calls atomic.Int32
	q.RegisterHandler("recovers", func(ctx context.Context, payload any) (any, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("first attempt fails")
		}
		return "ok", nil
	})

	id, err := q.Enqueue("recovers", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := q.Await(ctx, id, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, "ok", job.Result)
	assert.Equal(t, 2, job.Attempts)
}

func TestRetryRequeueWaitsForChannelSpace(t *testing.T) {
	q := New(func(o *Options) { o.Workers = 1 })
	defer q.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	q.RegisterHandler("recovers", func(ctx context.Context, payload any) (any, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return nil, errors.New("first attempt fails")
		}
		return "ok", nil
	})
	q.RegisterHandler("noop", func(ctx context.Context, payload any) (any, error) {
		return nil, nil
	})

	id, err := q.Enqueue("recovers", nil)
	require.NoError(t, err)
	<-started

	// saturate the task channel while the only worker is busy, so the retry
	// finds no free slot at the moment it is requeued
	for i := 0; i < cap(q.tasks); i++ {
		_, err := q.Enqueue("noop", nil)
		require.NoError(t, err)
	}
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	job, err := q.Await(ctx, id, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, "ok", job.Result)
	assert.Equal(t, 2, job.Attempts)
}

func TestUnknownKindAndJob(t *testing.T) {
	q := New()
	defer q.Close()

	_, err := q.Enqueue("missing", nil)
	assert.Error(t, err)

	_, err = q.Status("nope")
	assert.ErrorIs(t, err, ErrUnknownJob)
}
