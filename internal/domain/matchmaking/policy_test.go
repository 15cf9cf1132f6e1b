package matchmaking

import (
	"fmt"
	"testing"
	"time"
)

func makeCandidates(n int, oldestWait time.Duration, now time.Time) []Candidate {
	out := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		// First candidate is the oldest; the rest joined progressively later.
		joined := now.Add(-oldestWait + time.Duration(i)*time.Second)
		out = append(out, Candidate{
			PlayerID: fmt.Sprintf("p-%02d", i),
			JoinedAt: joined,
			Rating:   1600,
		})
	}
	return out
}

func TestShouldRun(t *testing.T) {
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		count        int
		oldestWait   time.Duration
		minQueueSize int
		maxWait      time.Duration
		want         bool
	}{
		{name: "below one group never runs", count: 9, oldestWait: time.Hour, minQueueSize: 30, maxWait: time.Minute, want: false},
		{name: "empty queue", count: 0, oldestWait: 0, minQueueSize: 30, maxWait: time.Minute, want: false},
		{name: "at min queue size runs immediately", count: 30, oldestWait: time.Second, minQueueSize: 30, maxWait: time.Minute, want: true},
		{name: "above min queue size runs immediately", count: 45, oldestWait: time.Second, minQueueSize: 30, maxWait: time.Minute, want: true},
		{name: "between group and min, fresh queue waits", count: 12, oldestWait: 30 * time.Second, minQueueSize: 30, maxWait: time.Minute, want: false},
		{name: "between group and min, stale queue runs", count: 12, oldestWait: 61 * time.Second, minQueueSize: 30, maxWait: time.Minute, want: true},
		{name: "wait exactly at threshold runs", count: 10, oldestWait: time.Minute, minQueueSize: 30, maxWait: time.Minute, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := makeCandidates(tt.count, tt.oldestWait, now)
			got := ShouldRun(candidates, tt.minQueueSize, tt.maxWait, now)
			if got != tt.want {
				t.Fatalf("ShouldRun(count=%d oldestWait=%s) = %t, want %t", tt.count, tt.oldestWait, got, tt.want)
			}
		})
	}
}
