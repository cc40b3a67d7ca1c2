package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingOp builds an operation whose steps append their names to
// trace, so tests can assert ordering and short-circuiting.
func recordingOp(trace *[]string, failAt ExecutionStep) Operation[string, string, string, string] {
	step := func(name ExecutionStep) error {
		*trace = append(*trace, string(name))
		if name == failAt {
			return errors.New("boom")
		}
		return nil
	}

	return Operation[string, string, string, string]{
		Name: "test-op",
		Validate: func(_ context.Context, _ string) error {
			return step(StepValidate)
		},
		Perform: func(_ context.Context, input string) (string, error) {
			return input + ":performed", step(StepPerform)
		},
		Verify: func(_ context.Context, _ string, performed string) (string, error) {
			return performed + ":verified", step(StepVerify)
		},
		Archive: func(_ context.Context, _ string, _ string) error {
			return step(StepArchive)
		},
		Respond: func(_ context.Context, _ string, verified string) (string, error) {
			return verified + ":responded", step(StepRespond)
		},
	}
}

func TestExecute_RunsStepsInOrder(t *testing.T) {
	exec := NewExecutor(discardLogger())
	var trace []string

	out, err := Execute(context.Background(), exec, recordingOp(&trace, ""), "in")

	require.NoError(t, err)
	assert.Equal(t, "in:performed:verified:responded", out)
	assert.Equal(t, []string{"validate", "perform", "verify", "archive", "respond"}, trace)
}

func TestExecute_FailingStepAbortsRun(t *testing.T) {
	tests := []struct {
		failAt    ExecutionStep
		wantTrace []string
	}{
		{StepValidate, []string{"validate"}},
		{StepPerform, []string{"validate", "perform"}},
		{StepVerify, []string{"validate", "perform", "verify"}},
		{StepArchive, []string{"validate", "perform", "verify", "archive"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.failAt), func(t *testing.T) {
			exec := NewExecutor(discardLogger())
			var trace []string

			out, err := Execute(context.Background(), exec, recordingOp(&trace, tt.failAt), "in")

			require.Error(t, err)
			assert.Empty(t, out, "a failed run returns the zero output")
			assert.Equal(t, tt.wantTrace, trace, "steps after the failure must not run")

			step, ok := GetExecutionStep(err)
			require.True(t, ok)
			assert.Equal(t, tt.failAt, step)
		})
	}
}

func TestExecute_VerifyFailureSkipsArchive(t *testing.T) {
	exec := NewExecutor(discardLogger())
	archived := false

	op := Operation[int, int, int, int]{
		Name:    "guarded-write",
		Perform: func(_ context.Context, n int) (int, error) { return n * 2, nil },
		Verify: func(_ context.Context, _ int, _ int) (int, error) {
			return 0, errors.New("result does not check out")
		},
		Archive: func(_ context.Context, _ int, _ int) error {
			archived = true
			return nil
		},
	}

	_, err := Execute(context.Background(), exec, op, 21)

	require.Error(t, err)
	assert.False(t, archived, "nothing is persisted until verification passes")
}

func TestExecute_NilStepsPassThrough(t *testing.T) {
	exec := NewExecutor(discardLogger())

	op := Operation[string, string, string, string]{
		Name:    "perform-only",
		Perform: func(_ context.Context, input string) (string, error) { return input, nil },
		Verify: func(_ context.Context, _ string, performed string) (string, error) {
			return performed, nil
		},
		Respond: func(_ context.Context, _ string, verified string) (string, error) {
			return verified, nil
		},
	}

	out, err := Execute(context.Background(), exec, op, "carried")

	require.NoError(t, err)
	assert.Equal(t, "carried", out)
}

func TestExecute_AllNilStepsSucceed(t *testing.T) {
	exec := NewExecutor(discardLogger())

	out, err := Execute(context.Background(), exec, Operation[int, int, int, int]{Name: "empty"}, 7)

	require.NoError(t, err)
	assert.Zero(t, out)
}

func TestExecutionError_UnwrapsToCause(t *testing.T) {
	cause := errors.New("socket closed")
	exec := NewExecutor(discardLogger())

	op := Operation[int, int, int, int]{
		Name:    "flaky",
		Perform: func(_ context.Context, _ int) (int, error) { return 0, cause },
	}

	_, err := Execute(context.Background(), exec, op, 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsExecutionError(err))

	// Survives further wrapping.
	wrapped := fmt.Errorf("refresh: %w", err)
	step, ok := GetExecutionStep(wrapped)
	require.True(t, ok)
	assert.Equal(t, StepPerform, step)
}

func TestExecutionError_Messages(t *testing.T) {
	withCause := &ExecutionError{Step: StepVerify, Message: "bad batch", Cause: errors.New("empty")}
	assert.Equal(t, "verify failed: bad batch: empty", withCause.Error())

	bare := &ExecutionError{Step: StepArchive, Message: "write refused"}
	assert.Equal(t, "archive failed: write refused", bare.Error())
}

func TestGetExecutionStep_PlainErrorHasNone(t *testing.T) {
	_, ok := GetExecutionStep(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, IsExecutionError(errors.New("plain")))
}
