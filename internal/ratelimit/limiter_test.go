package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAllow_BurstThenRefill(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{RequestsPerMinute: 60, Burst: 3, Clock: clock})
	defer limiter.Close()

	for i := 0; i < 3; i++ {
		if result := limiter.Allow("203.0.113.5"); !result.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	result := limiter.Allow("203.0.113.5")
	if result.Allowed {
		t.Fatalf("fourth request should be limited")
	}
	if result.RetryAfter <= 0 || result.RetryAfter > time.Second {
		t.Fatalf("retry after = %s, want (0, 1s]", result.RetryAfter)
	}

	if other := limiter.Allow("203.0.113.6"); !other.Allowed {
		t.Fatalf("other clients have their own bucket")
	}

	clock.Advance(time.Second)
	if result := limiter.Allow("203.0.113.5"); !result.Allowed {
		t.Fatalf("token should refill after one second")
	}
}

func TestAllow_Disabled(t *testing.T) {
	limiter := New(&Config{RequestsPerMinute: 0})
	defer limiter.Close()
	for i := 0; i < 100; i++ {
		if !limiter.Allow("203.0.113.5").Allowed {
			t.Fatalf("disabled limiter must allow everything")
		}
	}
}

func TestMiddleware(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{RequestsPerMinute: 1, Burst: 1, Clock: clock})
	defer limiter.Close()

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
		req.RemoteAddr = "203.0.113.9:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusCreated {
		t.Fatalf("first status = %d, want 201", rec.Code)
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("Retry-After = %q, want 60", got)
	}
}

func TestCleanupForgetsIdleClients(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{RequestsPerMinute: 60, Burst: 1, IdleTTL: time.Minute, Clock: clock})
	defer limiter.Close()

	limiter.Allow("203.0.113.5")
	clock.Advance(2 * time.Minute)
	limiter.cleanup()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.clients) != 0 {
		t.Fatalf("clients = %d, want 0", len(limiter.clients))
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trustProxy bool
		expected   string
	}{
		{
			name:       "trust_proxy_rightmost_public",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.50",
		},
		{
			name:       "trust_proxy_all_private",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "10.0.0.1",
		},
		{
			name:       "trust_proxy_real_ip",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.51",
		},
		{
			name:       "untrusted_ignores_headers",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4"},
			remoteAddr: "192.168.1.100:54321",
			expected:   "192.168.1.100",
		},
		{
			name:       "remote_addr_without_port",
			remoteAddr: "203.0.113.7",
			expected:   "203.0.113.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for key, value := range tt.headers {
				r.Header.Set(key, value)
			}
			if got := GetClientIP(r, tt.trustProxy); got != tt.expected {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}
