package bot

import "testing"

func TestUserLimiter_BurstThenDeny(t *testing.T) {
	l := NewUserLimiter(0.001, 2)

	if !l.Allow(1) || !l.Allow(1) {
		t.Fatalf("burst tokens denied")
	}
	if l.Allow(1) {
		t.Fatalf("third request within burst window allowed")
	}
}

func TestUserLimiter_UsersAreIndependent(t *testing.T) {
	l := NewUserLimiter(0.001, 1)

	if !l.Allow(1) {
		t.Fatalf("first user denied")
	}
	if !l.Allow(2) {
		t.Fatalf("second user throttled by first user's bucket")
	}
	if l.Allow(1) {
		t.Fatalf("first user's bucket refilled too fast")
	}
}

func TestUserLimiter_DisabledWhenZeroRPS(t *testing.T) {
	l := NewUserLimiter(0, 1)

	for i := 0; i < 100; i++ {
		if !l.Allow(1) {
			t.Fatalf("disabled limiter denied request %d", i)
		}
	}
}

func TestUserLimiter_DefaultsBurstToOne(t *testing.T) {
	l := NewUserLimiter(0.001, 0)

	if !l.Allow(1) {
		t.Fatalf("first request denied")
	}
	if l.Allow(1) {
		t.Fatalf("zero burst did not default to a single token")
	}
}
