package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	locker := NewKeyedMutex()
	var inside int32
	var maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "emp-1")
			if !assert.NoError(t, err) {
				return
			}
			current := atomic.AddInt32(&inside, 1)
			for {
				seen := atomic.LoadInt32(&maxInside)
				if current <= seen || atomic.CompareAndSwapInt32(&maxInside, seen, current) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
	assert.Empty(t, locker.slots, "released keys are removed")
}

func TestKeyedMutexDifferentKeysDoNotBlock(t *testing.T) {
	locker := NewKeyedMutex()
	unlockA, err := locker.Lock(context.Background(), "emp-a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := locker.Lock(ctx, "emp-b")
	require.NoError(t, err)
	unlockB()
}

func TestKeyedMutexHonoursContext(t *testing.T) {
	locker := NewKeyedMutex()
	unlock, err := locker.Lock(context.Background(), "emp-1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "emp-1")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := NewRedisLocker(client, "payroll:lock:", 30*time.Second)
	locker.newToken = func() string { return "token-1" }

	mock.ExpectSetNX("payroll:lock:emp-1", "token-1", 30*time.Second).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"payroll:lock:emp-1"}, "token-1").SetVal(int64(1))

	unlock, err := locker.Lock(context.Background(), "emp-1")
	require.NoError(t, err)
	unlock()

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLockerRetriesUntilFree(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := NewRedisLocker(client, "payroll:lock:", time.Minute)
	locker.newToken = func() string { return "token-2" }
	locker.retry = time.Millisecond

	mock.ExpectSetNX("payroll:lock:emp-2", "token-2", time.Minute).SetVal(false)
	mock.ExpectSetNX("payroll:lock:emp-2", "token-2", time.Minute).SetVal(true)

	_, err := locker.Lock(context.Background(), "emp-2")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLockerGivesUpOnContext(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := NewRedisLocker(client, "payroll:lock:", time.Minute)
	locker.newToken = func() string { return "token-3" }
	locker.retry = 50 * time.Millisecond

	mock.ExpectSetNX("payroll:lock:emp-3", "token-3", time.Minute).SetVal(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := locker.Lock(ctx, "emp-3")
	assert.ErrorIs(t, err, ErrNotAcquired)
}
