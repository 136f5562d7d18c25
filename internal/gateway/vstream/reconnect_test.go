package vstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// TestReconnect_InitialDelay tests first retry uses initial delay
func TestReconnect_InitialDelay(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	cfg := ReconnectConfig{
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          1 * time.Second,
		BackoffMultiplier: 2.0,
		JitterPercent:     0, // No jitter for predictable timing
	}

	rm := NewReconnectManager(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	startTime := time.Now()
	attemptTimes := []time.Time{}

	connectFunc := func(_ context.Context) error {
		attemptTimes = append(attemptTimes, time.Now())
		if len(attemptTimes) >= 2 {
			cancel() // Stop after 2 attempts
		}
		return errors.New("connection failed")
	}

	_ = rm.Reconnect(ctx, connectFunc)

	if len(attemptTimes) < 2 {
		t.Fatalf("expected at least 2 attempts, got %d", len(attemptTimes))
	}

	delay := attemptTimes[0].Sub(startTime)
	expectedMin := 50 * time.Millisecond
	expectedMax := 250 * time.Millisecond

	if delay < expectedMin || delay > expectedMax {
		t.Errorf("expected initial delay ~100ms (50-250ms window), got %v (first attempt at %v, second at %v from start)",
			delay, attemptTimes[0].Sub(startTime), attemptTimes[1].Sub(startTime))
	}
}

// TestReconnect_ExponentialGrowth tests backoff doubles each attempt
func TestReconnect_ExponentialGrowth(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	cfg := ReconnectConfig{
		InitialDelay:      50 * time.Millisecond,
		MaxDelay:          1 * time.Second,
		BackoffMultiplier: 2.0,
		JitterPercent:     0,
	}

	rm := NewReconnectManager(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	attemptTimes := []time.Time{}

	connectFunc := func(_ context.Context) error {
		attemptTimes = append(attemptTimes, time.Now())
		if len(attemptTimes) >= 4 {
			cancel()
		}
		return errors.New("connection failed")
	}

	_ = rm.Reconnect(ctx, connectFunc)

	if len(attemptTimes) < 4 {
		t.Fatalf("expected at least 4 attempts, got %d", len(attemptTimes))
	}

	delays := []time.Duration{
		attemptTimes[1].Sub(attemptTimes[0]),
		attemptTimes[2].Sub(attemptTimes[1]),
		attemptTimes[3].Sub(attemptTimes[2]),
	}

	if delays[0] < 10*time.Millisecond || delays[0] > 300*time.Millisecond {
		t.Errorf("expected first delay ~100ms (wide tolerance), got %v", delays[0])
	}
	if delays[1] < 20*time.Millisecond || delays[1] > 500*time.Millisecond {
		t.Errorf("expected second delay ~200ms (wide tolerance), got %v", delays[1])
	}
	if delays[2] < 50*time.Millisecond || delays[2] > 800*time.Millisecond {
		t.Errorf("expected third delay ~400ms (wide tolerance), got %v", delays[2])
	}

	if delays[1] <= delays[0] {
		t.Errorf("expected delays to increase exponentially, but delay[1] (%v) <= delay[0] (%v)", delays[1], delays[0])
	}
	if delays[2] <= delays[1] {
		t.Errorf("expected delays to increase exponentially, but delay[2] (%v) <= delay[1] (%v)", delays[2], delays[1])
	}
}

// TestReconnect_MaxDelayCap tests backoff caps at max delay
func TestReconnect_MaxDelayCap(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	cfg := ReconnectConfig{
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          200 * time.Millisecond,
		BackoffMultiplier: 2.0,
		JitterPercent:     0,
	}

	rm := NewReconnectManager(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	attemptTimes := []time.Time{}

	connectFunc := func(_ context.Context) error {
		attemptTimes = append(attemptTimes, time.Now())
		if len(attemptTimes) >= 5 {
			cancel()
		}
		return errors.New("connection failed")
	}

	_ = rm.Reconnect(ctx, connectFunc)

	if len(attemptTimes) < 5 {
		t.Fatalf("expected at least 5 attempts, got %d", len(attemptTimes))
	}

	delay3 := attemptTimes[3].Sub(attemptTimes[2])
	delay4 := attemptTimes[4].Sub(attemptTimes[3])

	maxAllowed := 220 * time.Millisecond

	if delay3 > maxAllowed {
		t.Errorf("expected delay 3 to be capped at ~200ms, got %v", delay3)
	}
	if delay4 > maxAllowed {
		t.Errorf("expected delay 4 to be capped at ~200ms, got %v", delay4)
	}
}

// TestReconnect_JitterApplication tests jitter adds randomness
func TestReconnect_JitterApplication(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	cfg := ReconnectConfig{
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          1 * time.Second,
		BackoffMultiplier: 2.0,
		JitterPercent:     0.2,
	}

	rm := NewReconnectManager(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	attemptTimes := []time.Time{}

	connectFunc := func(_ context.Context) error {
		attemptTimes = append(attemptTimes, time.Now())
		if len(attemptTimes) >= 3 {
			cancel()
		}
		return errors.New("connection failed")
	}

	_ = rm.Reconnect(ctx, connectFunc)

	if len(attemptTimes) < 3 {
		t.Fatalf("expected at least 3 attempts, got %d", len(attemptTimes))
	}

	delay := attemptTimes[1].Sub(attemptTimes[0])

	minExpected := 20 * time.Millisecond
	maxExpected := 300 * time.Millisecond

	if delay < minExpected || delay > maxExpected {
		t.Errorf("expected delay in range [%v, %v] with 20%% jitter + system tolerance, got %v", minExpected, maxExpected, delay)
	}
}

// TestReconnect_ContextCancellation tests graceful shutdown during backoff
func TestReconnect_ContextCancellation(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	cfg := ReconnectConfig{
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2.0,
		JitterPercent:     0,
	}

	rm := NewReconnectManager(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())

	connectFunc := func(_ context.Context) error {
		return errors.New("connection failed")
	}

	done := make(chan error, 1)
	go func() {
		done <- rm.Reconnect(ctx, connectFunc)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reconnection didn't stop after context cancellation")
	}
}

// TestReconnect_ResetOnSuccess tests delay resets after successful connect
func TestReconnect_ResetOnSuccess(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	cfg := ReconnectConfig{
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          1 * time.Second,
		BackoffMultiplier: 2.0,
		JitterPercent:     0,
	}

	rm := NewReconnectManager(cfg, logger)

	ctx1, cancel1 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel1()

	attempt1 := 0
	connectFunc1 := func(_ context.Context) error {
		attempt1++
		if attempt1 < 3 {
			return errors.New("connection failed")
		}
		return nil
	}

	err := rm.Reconnect(ctx1, connectFunc1)
	if err != nil {
		t.Fatalf("expected successful reconnection, got %v", err)
	}

	rm.Reset()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()

	attemptTimes := []time.Time{}
	connectFunc2 := func(_ context.Context) error {
		attemptTimes = append(attemptTimes, time.Now())
		if len(attemptTimes) >= 2 {
			cancel2()
		}
		return errors.New("connection failed")
	}

	_ = rm.Reconnect(ctx2, connectFunc2)

	if len(attemptTimes) < 2 {
		t.Fatalf("expected at least 2 attempts in second reconnection, got %d", len(attemptTimes))
	}

	delay := attemptTimes[1].Sub(attemptTimes[0])
	if delay < 50*time.Millisecond || delay > 250*time.Millisecond {
		t.Errorf("expected ~200ms between the first two attempts after reset (initial delay doubled once), got %v", delay)
	}
}
