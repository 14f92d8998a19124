package scheduler

import (
	"testing"
	"time"
)

func TestNewRejectsInvalidSchedule(t *testing.T) {
	if _, err := New("not a schedule", nil, func() {}, nil); err == nil {
		t.Fatal("Expected error for invalid schedule")
	}
	if _, err := New("0 */6 * * *", nil, nil, nil); err == nil {
		t.Fatal("Expected error for nil job")
	}
}

func TestSchedulerNext(t *testing.T) {
	s, err := New("0 */6 * * *", time.UTC, func() {}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	s.Start()
	defer s.Stop()

	next := s.Next()
	if next.IsZero() {
		t.Fatal("Expected next activation after Start")
	}
	if next.Minute() != 0 || next.Hour()%6 != 0 {
		t.Errorf("Unexpected next activation %v", next)
	}
}

func TestSchedulerRunsJob(t *testing.T) {
	ran := make(chan struct{}, 1)
	s, err := New("@every 1s", nil, func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("Expected job to run")
	}
}
