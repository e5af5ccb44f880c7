package redis

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/BlindDock/pkg/errors"
)

func newTestLocker(t *testing.T, opts ...LockOption) (*JobLocker, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	opts = append([]LockOption{WithWatchdog(0)}, opts...)
	l := NewJobLocker(NewClientWithRDB(db, "bd:", nil), time.Minute, nil, opts...)
	l.newToken = func() string { return "token-1" }
	return l, mock
}

func TestJobLocker_LockUnlock(t *testing.T) {
	l, mock := newTestLocker(t)
	ctx := context.Background()

	mock.ExpectSetNX("bd:lock:job:job-1", "token-1", time.Minute).SetVal(true)
	mock.ExpectEvalSha(unlockScript.Hash(), []string{"bd:lock:job:job-1"}, "token-1").SetVal(int64(1))

	unlock, err := l.Lock(ctx, "job-1")
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx), "second unlock is a no-op")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobLocker_Held(t *testing.T) {
	l, mock := newTestLocker(t)

	mock.ExpectSetNX("bd:lock:job:job-1", "token-1", time.Minute).SetVal(false)

	_, err := l.Lock(context.Background(), "job-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeJobLocked))
}

func TestJobLocker_RedisDown(t *testing.T) {
	l, mock := newTestLocker(t)

	mock.ExpectSetNX("bd:lock:job:job-1", "token-1", time.Minute).SetErr(stderrors.New("dial tcp: refused"))

	_, err := l.Lock(context.Background(), "job-1")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeCache))
}

func TestJobLocker_ExpiredBeforeUnlock(t *testing.T) {
	l, mock := newTestLocker(t)
	ctx := context.Background()

	mock.ExpectSetNX("bd:lock:job:job-1", "token-1", time.Minute).SetVal(true)
	mock.ExpectEvalSha(unlockScript.Hash(), []string{"bd:lock:job:job-1"}, "token-1").SetVal(int64(0))

	unlock, err := l.Lock(ctx, "job-1")
	require.NoError(t, err)
	assert.ErrorIs(t, unlock(ctx), ErrLockNotHeld)
}

func TestJobLocker_WatchdogExtends(t *testing.T) {
	l, mock := newTestLocker(t, WithWatchdog(10*time.Millisecond))
	mock.MatchExpectationsInOrder(false)
	ctx := context.Background()

	mock.ExpectSetNX("bd:lock:job:job-1", "token-1", time.Minute).SetVal(true)
	mock.ExpectEvalSha(extendScript.Hash(), []string{"bd:lock:job:job-1"}, "token-1", int64(60000)).SetVal(int64(1))
	mock.ExpectEvalSha(unlockScript.Hash(), []string{"bd:lock:job:job-1"}, "token-1").SetVal(int64(1))

	unlock, err := l.Lock(ctx, "job-1")
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, unlock(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

//Personal.AI order the ending
