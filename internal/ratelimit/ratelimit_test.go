package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Unix(1_700_000_100, 0)
	window := time.Minute

	for i := 0; i < 3; i++ {
		res, errAllow := limiter.Allow(context.Background(), "k", 3, window, now)
		if errAllow != nil {
			t.Fatalf("allow %d: %v", i, errAllow)
		}
		if !res.Allowed {
			t.Fatalf("attempt %d should be allowed", i)
		}
		if res.Remaining != 3-i-1 {
			t.Fatalf("attempt %d: remaining %d", i, res.Remaining)
		}
	}

	res, _ := limiter.Allow(context.Background(), "k", 3, window, now)
	if res.Allowed {
		t.Fatalf("fourth attempt should be denied")
	}
	if res.Reset.Before(now) {
		t.Fatalf("reset %v is before now %v", res.Reset, now)
	}

	// A new window starts the count over.
	later := now.Add(window)
	res, _ = limiter.Allow(context.Background(), "k", 3, window, later)
	if !res.Allowed {
		t.Fatalf("attempt in new window should be allowed")
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Unix(1_700_000_100, 0)

	for i := 0; i < 2; i++ {
		if res, _ := limiter.Allow(context.Background(), "a", 2, time.Minute, now); !res.Allowed {
			t.Fatalf("key a attempt %d denied", i)
		}
	}
	if res, _ := limiter.Allow(context.Background(), "a", 2, time.Minute, now); res.Allowed {
		t.Fatalf("key a should be exhausted")
	}
	if res, _ := limiter.Allow(context.Background(), "b", 2, time.Minute, now); !res.Allowed {
		t.Fatalf("key b should be unaffected")
	}
}

func TestLoginKey(t *testing.T) {
	if got := LoginKey("10.0.0.1", "CA@Example.com"); got != "login:10.0.0.1:ca@example.com" {
		t.Fatalf("unexpected key %q", got)
	}
	if LoginKey("", "ca@example.com") != "" {
		t.Fatalf("missing ip should produce empty key")
	}
	if LoginKey("10.0.0.1", " ") != "" {
		t.Fatalf("missing email should produce empty key")
	}
}

func TestManager_DisabledLimitAllowsEverything(t *testing.T) {
	manager := NewManager(Settings{LoginLimit: 0}, nil, nil)
	for i := 0; i < 100; i++ {
		res, errAllow := manager.AllowLogin(context.Background(), "login:ip:mail")
		if errAllow != nil || !res.Allowed {
			t.Fatalf("attempt %d: %+v %v", i, res, errAllow)
		}
	}
}

func TestManager_MemoryBackendEnforcesLimit(t *testing.T) {
	now := time.Unix(1_700_000_100, 0)
	manager := NewManager(
		Settings{LoginLimit: 2, LoginWindow: time.Minute},
		func() time.Time { return now },
		nil,
	)

	key := LoginKey("10.0.0.1", "ca@example.com")
	for i := 0; i < 2; i++ {
		res, errAllow := manager.AllowLogin(context.Background(), key)
		if errAllow != nil || !res.Allowed {
			t.Fatalf("attempt %d: %+v %v", i, res, errAllow)
		}
	}
	res, errAllow := manager.AllowLogin(context.Background(), key)
	if errAllow != nil {
		t.Fatalf("third attempt: %v", errAllow)
	}
	if res.Allowed {
		t.Fatalf("third attempt should be denied")
	}
}

func TestManager_RedisFailureFallsBackToMemory(t *testing.T) {
	now := time.Unix(1_700_000_100, 0)
	manager := NewManager(
		Settings{
			LoginLimit:   1,
			LoginWindow:  time.Minute,
			RedisEnabled: true,
			// No address configured, so the redis path always fails.
		},
		func() time.Time { return now },
		nil,
	)

	key := LoginKey("10.0.0.1", "ca@example.com")
	res, errAllow := manager.AllowLogin(context.Background(), key)
	if errAllow != nil || !res.Allowed {
		t.Fatalf("first attempt should fall back to memory: %+v %v", res, errAllow)
	}
	res, errAllow = manager.AllowLogin(context.Background(), key)
	if errAllow != nil {
		t.Fatalf("second attempt: %v", errAllow)
	}
	if res.Allowed {
		t.Fatalf("memory fallback should still enforce the limit")
	}
}
