package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNetworkError(t *testing.T) {
	baseErr := errors.New("connection refused")

	t.Run("retriable error", func(t *testing.T) {
		err := NewNetworkError("dial", baseErr)

		if !err.IsRetriable() {
			t.Error("Expected error to be retriable")
		}

		if err.Error() != "dial: connection refused" {
			t.Errorf("Error message = %q, want %q", err.Error(), "dial: connection refused")
		}

		if !errors.Is(err, baseErr) {
			t.Error("Expected error to wrap baseErr")
		}
	})

	t.Run("fatal error", func(t *testing.T) {
		err := NewFatalNetworkError("decode", baseErr)

		if err.IsRetriable() {
			t.Error("Expected error to not be retriable")
		}
	})

	t.Run("IsRetriable helper", func(t *testing.T) {
		retriable := NewNetworkError("dial", baseErr)
		fatal := NewFatalNetworkError("decode", baseErr)
		plain := errors.New("plain error")

		if !IsRetriable(retriable) {
			t.Error("IsRetriable should return true for retriable error")
		}

		if IsRetriable(fatal) {
			t.Error("IsRetriable should return false for fatal error")
		}

		if IsRetriable(plain) {
			t.Error("IsRetriable should return false for plain error")
		}
	})
}

func TestConfigError(t *testing.T) {
	baseErr := errors.New("must be positive")
	err := &ConfigError{Field: "grid.row_height", Err: baseErr}

	if err.IsRetriable() {
		t.Error("ConfigError should never be retriable")
	}

	expected := "config error [grid.row_height]: must be positive"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}

func TestStorageError(t *testing.T) {
	baseErr := errors.New("quota exceeded")

	t.Run("with key", func(t *testing.T) {
		err := &StorageError{Op: "set", Key: "scrollTop", Err: baseErr}
		if err.Error() != "storage set [scrollTop]: quota exceeded" {
			t.Errorf("Error message = %q", err.Error())
		}
	})

	t.Run("without key", func(t *testing.T) {
		err := &StorageError{Op: "put_all", Err: baseErr}
		if err.Error() != "storage put_all: quota exceeded" {
			t.Errorf("Error message = %q", err.Error())
		}
	})

	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("persist selection: %w", &StorageError{Op: "set", Err: baseErr})
		if !errors.Is(wrapped, baseErr) {
			t.Error("Expected wrapped error to match baseErr")
		}
		if !IsRetriable(wrapped) {
			t.Error("StorageError should be retriable")
		}
	})
}
