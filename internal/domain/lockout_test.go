package domain

import (
	"testing"
	"time"
)

func TestLockRecordRemainingMinutes(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name        string
		lockedUntil time.Time
		want        int
	}{
		{"full lockout ahead", now.Add(15 * time.Minute), 15},
		{"partial minute rounds up", now.Add(4*time.Minute + 30*time.Second), 5},
		{"final second still reports one", now.Add(time.Second), 1},
		{"already past floors at one", now.Add(-time.Second), 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := LockRecord{LockedUntil: tc.lockedUntil}
			if got := record.RemainingMinutes(now); got != tc.want {
				t.Errorf("RemainingMinutes = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"learner", "teacher", "admin"} {
		if _, err := ParseRole(valid); err != nil {
			t.Errorf("ParseRole(%q) = %v", valid, err)
		}
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestParseAccountStatus(t *testing.T) {
	for _, valid := range []string{"pending_verification", "active", "suspended"} {
		if _, err := ParseAccountStatus(valid); err != nil {
			t.Errorf("ParseAccountStatus(%q) = %v", valid, err)
		}
	}
	if _, err := ParseAccountStatus("deleted"); err == nil {
		t.Error("expected error for unknown status")
	}
}
