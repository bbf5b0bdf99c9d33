package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestRunLockKey(t *testing.T) {
	if got := RunLockKey("prices"); got != "refresh:prices" {
		t.Fatalf("unexpected lock key %q", got)
	}
}

func TestNilLockerIsUnguarded(t *testing.T) {
	var l *RunLocker

	token, acquired, err := l.TryLock(context.Background(), RunLockKey("prices"), time.Minute)
	if err != nil {
		t.Fatalf("nil locker must not error: %v", err)
	}
	if !acquired {
		t.Fatal("nil locker must always grant the lock")
	}
	if err := l.Release(context.Background(), RunLockKey("prices"), token); err != nil {
		t.Fatalf("nil locker release: %v", err)
	}
}

func TestNewRunLockerNilClient(t *testing.T) {
	if NewRunLocker(nil) != nil {
		t.Fatal("no redis client must yield a nil locker")
	}
}
