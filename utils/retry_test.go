package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry_Success(t *testing.T) {
	config := DefaultRetryConfig()
	ctx := context.Background()
	attempts := 0

	err := Retry(ctx, config, func() error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Retry() error = %v, want nil", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_EventualSuccess(t *testing.T) {
	config := DefaultRetryConfig()
	config.BaseDelay = time.Millisecond
	ctx := context.Background()
	attempts := 0

	err := Retry(ctx, config, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary failure")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Retry() error = %v, want nil", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_MaxAttempts(t *testing.T) {
	config := DefaultRetryConfig()
	config.MaxAttempts = 3
	config.BaseDelay = time.Millisecond
	ctx := context.Background()
	attempts := 0

	err := Retry(ctx, config, func() error {
		attempts++
		return errors.New("temporary failure")
	})

	if err == nil {
		t.Error("Retry() error = nil, want error")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_NonRetryableError(t *testing.T) {
	config := DefaultRetryConfig()
	config.BaseDelay = time.Millisecond
	ctx := context.Background()
	attempts := 0

	err := Retry(ctx, config, func() error {
		attempts++
		return errors.New("card declined")
	})

	if err == nil {
		t.Error("Retry() error = nil, want error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (non-retryable errors must not retry)", attempts)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	config := DefaultRetryConfig()
	config.BaseDelay = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Retry(ctx, config, func() error {
		attempts++
		return errors.New("temporary failure")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() error = %v, want context.Canceled", err)
	}
}
