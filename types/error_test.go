package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrTransientBackend, "wikipedia unavailable").
		WithCause(root).
		WithRetryable(true).
		WithComponent("admirer")

	if GetErrorCode(err) != ErrTransientBackend {
		t.Fatalf("expected code %s, got %s", ErrTransientBackend, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got != "[TRANSIENT_BACKEND_FAILURE] admirer: wikipedia unavailable: root" {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestIsRetryable_OutermostWins(t *testing.T) {
	t.Parallel()

	transient := NewTransientError("timeout", errors.New("i/o timeout"))
	exhausted := NewError(ErrBackendFailure, "gave up").WithCause(transient)

	if IsRetryable(exhausted) {
		t.Fatalf("exhausted failure must not be retryable")
	}
	if !IsRetryable(fmt.Errorf("wrapped: %w", transient)) {
		t.Fatalf("fmt-wrapped transient error should stay retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("plain errors are not retryable")
	}
}

func TestHasCode_WalksJoinedErrors(t *testing.T) {
	t.Parallel()

	violation := NewContractViolation("critic", "field %s not declared", "pos_data")
	backend := NewError(ErrBackendFailure, "research failed")
	joined := errors.Join(backend, fmt.Errorf("child: %w", violation))
	composite := NewError(ErrCompositionFailure, "parallel failed").WithCause(joined)

	if !HasCode(composite, ErrTaskContractViolation) {
		t.Fatalf("expected contract violation to be found in joined tree")
	}
	if !HasCode(composite, ErrBackendFailure) {
		t.Fatalf("expected backend failure to be found in joined tree")
	}
	if HasCode(composite, ErrPersistenceFailure) {
		t.Fatalf("unexpected persistence failure code")
	}
	if HasCode(nil, ErrBackendFailure) {
		t.Fatalf("nil error has no code")
	}
}
