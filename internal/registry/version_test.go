package registry

import (
	"regexp"
	"testing"
	"time"
)

func TestNewVersionIDFormat(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 535897932, time.UTC)

	id := NewVersionID("churn", "run-1", now)

	pattern := regexp.MustCompile(`^v20260314_[0-9a-f]{8}$`)
	if !pattern.MatchString(id) {
		t.Errorf("NewVersionID() = %q, want match for %s", id, pattern)
	}
}

func TestNewVersionIDDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 535897932, time.UTC)

	a := NewVersionID("churn", "run-1", now)
	b := NewVersionID("churn", "run-1", now)

	if a != b {
		t.Errorf("same inputs produced different ids: %q vs %q", a, b)
	}
}

func TestNewVersionIDDistinctWithinSameSecond(t *testing.T) {
	// Two registrations of the same model from the same run within one
	// second must still get distinct ids: the digest includes nanoseconds.
	base := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	a := NewVersionID("churn", "run-1", base)
	b := NewVersionID("churn", "run-1", base.Add(time.Nanosecond))

	if a == b {
		t.Errorf("ids within the same second collided: %q", a)
	}
}

func TestNewVersionIDUsesUTCDateStamp(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	now := time.Date(2026, 3, 14, 23, 30, 0, 0, loc)

	id := NewVersionID("churn", "run-1", now)

	if got, want := id[:10], "v20260315_"; got != want {
		t.Errorf("date stamp = %q, want %q", got, want)
	}
}
