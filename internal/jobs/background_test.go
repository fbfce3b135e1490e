package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
)

func TestBackgroundRunner_RunsSubmittedTask(t *testing.T) {
	r := NewBackgroundRunner(logger.NewNop(), 4)
	defer r.Close()

	done := make(chan struct{})
	if !r.Submit("test", func(ctx context.Context) { close(done) }) {
		t.Fatal("submit refused with free slots")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestBackgroundRunner_ShedsWhenSaturated(t *testing.T) {
	r := NewBackgroundRunner(logger.NewNop(), 1)
	defer r.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	if !r.Submit("blocker", func(ctx context.Context) {
		close(started)
		<-release
	}) {
		t.Fatal("first submit refused")
	}
	<-started

	if r.Submit("shed", func(ctx context.Context) {}) {
		t.Fatal("submit accepted while saturated")
	}
	if got := r.Dropped(); got != 1 {
		t.Fatalf("dropped = %d, want 1", got)
	}

	close(release)
	deadline := time.After(2 * time.Second)
	for {
		ran := make(chan struct{})
		if r.Submit("after", func(ctx context.Context) { close(ran) }) {
			<-ran
			return
		}
		select {
		case <-deadline:
			t.Fatal("slot never freed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestBackgroundRunner_ContainsPanics(t *testing.T) {
	r := NewBackgroundRunner(logger.NewNop(), 1)
	defer r.Close()

	if !r.Submit("panics", func(ctx context.Context) { panic("boom") }) {
		t.Fatal("submit refused")
	}

	// the slot must come back after the panic
	var ran atomic.Bool
	deadline := time.After(2 * time.Second)
	for !ran.Load() {
		done := make(chan struct{})
		if r.Submit("after-panic", func(ctx context.Context) { ran.Store(true); close(done) }) {
			<-done
			break
		}
		select {
		case <-deadline:
			t.Fatal("runner unusable after a task panic")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestBackgroundRunner_RefusesAfterClose(t *testing.T) {
	r := NewBackgroundRunner(logger.NewNop(), 1)
	r.Close()

	if r.Submit("late", func(ctx context.Context) {}) {
		t.Fatal("submit accepted after close")
	}
}
