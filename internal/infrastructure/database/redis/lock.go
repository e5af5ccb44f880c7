package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

var ErrLockNotHeld = errors.New(errors.ErrCodeConflict, "lock not held by this owner")

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// LockOption customises a JobLocker.
type LockOption func(*JobLocker)

// WithWatchdog extends held locks every interval; zero disables it.
func WithWatchdog(interval time.Duration) LockOption {
	return func(l *JobLocker) { l.watchdog = interval }
}

// JobLocker is a single-owner lock per job id, "<prefix>lock:job:<id>",
// implementing docking.JobLocker.
type JobLocker struct {
	client   *Client
	ttl      time.Duration
	watchdog time.Duration
	logger   logging.Logger
	newToken func() string
}

// NewJobLocker returns a locker whose locks expire after ttl unless the
// watchdog (ttl/3 by default) extends them.
func NewJobLocker(client *Client, ttl time.Duration, log logging.Logger, opts ...LockOption) *JobLocker {
	if log == nil {
		log = logging.NewNopLogger()
	}
	l := &JobLocker{
		client:   client,
		ttl:      ttl,
		watchdog: ttl / 3,
		logger:   log.Named("job-lock"),
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock acquires the job lock without waiting.  A held lock fails with
// CodeJobLocked.
func (l *JobLocker) Lock(ctx context.Context, jobID string) (func(context.Context) error, error) {
	if l.client.isClosed() {
		return nil, ErrClientClosed
	}
	key := l.client.Key("lock", "job", jobID)
	token := l.newToken()
	ok, err := l.client.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCache, "failed to acquire job lock").WithDetail(jobID)
	}
	if !ok {
		return nil, errors.New(errors.CodeJobLocked, "job is locked by another worker").WithDetail(jobID)
	}

	stop := l.startWatchdog(key, token)
	var once sync.Once
	var unlockErr error
	unlock := func(ctx context.Context) error {
		once.Do(func() {
			stop()
			n, err := unlockScript.Run(ctx, l.client.rdb, []string{key}, token).Int64()
			switch {
			case err != nil:
				unlockErr = errors.Wrap(err, errors.CodeCache, "failed to release job lock").WithDetail(jobID)
			case n == 0:
				unlockErr = ErrLockNotHeld
			}
		})
		return unlockErr
	}
	return unlock, nil
}

func (l *JobLocker) startWatchdog(key, token string) func() {
	if l.watchdog <= 0 || l.ttl <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(l.watchdog)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := extendScript.Run(ctx, l.client.rdb, []string{key}, token, l.ttl.Milliseconds()).Int64()
				if err != nil && ctx.Err() == nil {
					l.logger.Warn("job lock extend failed", logging.String("key", key), logging.Err(err))
				}
				if err == nil && n == 0 {
					l.logger.Warn("job lock lost", logging.String("key", key))
					return
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

//Personal.AI order the ending
