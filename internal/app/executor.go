package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quotedeck/quote-service/internal/platform/logging"
)

// State-changing operations run through a fixed five-step pipeline:
//
//	validate -> perform -> verify -> archive -> respond
//
// Nothing is persisted until the performed result has been verified,
// so a provider that returns garbage can never replace a good cached
// pool. Each step is optional; a nil step passes through. The pool
// refresh is the main user: perform draws a provider batch, verify
// validates and filters it, archive writes the cache, respond shapes
// the pool handed back to selection.

// ExecutionStep identifies a pipeline step in errors and logs.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError wraps a step failure with the step it happened in.
type ExecutionError struct {
	Step    ExecutionStep
	Message string
	Cause   error
}

func (e *ExecutionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s failed: %s", e.Step, e.Message)
	}

	return fmt.Sprintf("%s failed: %s: %v", e.Step, e.Message, e.Cause)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// StepError wraps cause as a failure of the given pipeline step.
func StepError(step ExecutionStep, message string, cause error) error {
	return &ExecutionError{Step: step, Message: message, Cause: cause}
}

// Executor runs operations through the pipeline with step-level logging.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor. A nil logger means slog.Default.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Operation defines the step functions for one pipeline run. I is the
// input, P the performed result, V the verified result, O the output.
type Operation[I, P, V, O any] struct {
	// Name labels the operation in logs and errors.
	Name string

	// Validate checks inputs and preconditions before any work.
	Validate func(ctx context.Context, input I) error

	// Perform executes the operation's side effect or remote call.
	Perform func(ctx context.Context, input I) (P, error)

	// Verify confirms the performed result independently before
	// anything is persisted.
	Verify func(ctx context.Context, input I, performed P) (V, error)

	// Archive persists the verified state. Runs only after Verify.
	Archive func(ctx context.Context, input I, verified V) error

	// Respond shapes the result for the caller. Runs last.
	Respond func(ctx context.Context, input I, verified V) (O, error)
}

// Execute runs op through the full pipeline. The first failing step
// aborts the run: validate through archive failures come back as an
// ExecutionError naming the step, respond errors pass through as the
// operation returned them.
func Execute[I, P, V, O any](ctx context.Context, exec *Executor, op Operation[I, P, V, O], input I) (O, error) {
	var (
		zero      O
		performed P
		verified  V
		out       O
	)

	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = exec.logger
	}
	logger = logger.With(slog.String("operation", op.Name))

	start := time.Now()

	steps := []func() error{
		func() error {
			if op.Validate == nil {
				return nil
			}
			if err := op.Validate(ctx, input); err != nil {
				logger.WarnContext(ctx, "validation failed", slog.Any("error", err))
				return StepError(StepValidate, "input validation failed", err)
			}
			return nil
		},
		func() error {
			if op.Perform == nil {
				return nil
			}
			p, err := op.Perform(ctx, input)
			if err != nil {
				logger.ErrorContext(ctx, "perform failed", slog.Any("error", err))
				return StepError(StepPerform, "operation failed", err)
			}
			performed = p
			return nil
		},
		func() error {
			if op.Verify == nil {
				return nil
			}
			v, err := op.Verify(ctx, input, performed)
			if err != nil {
				logger.ErrorContext(ctx, "verification failed", slog.Any("error", err))
				return StepError(StepVerify, "verification failed", err)
			}
			verified = v
			return nil
		},
		func() error {
			if op.Archive == nil {
				return nil
			}
			if err := op.Archive(ctx, input, verified); err != nil {
				logger.ErrorContext(ctx, "archive failed", slog.Any("error", err))
				return StepError(StepArchive, "state persistence failed", err)
			}
			return nil
		},
		func() error {
			if op.Respond == nil {
				return nil
			}
			o, err := op.Respond(ctx, input, verified)
			if err != nil {
				logger.WarnContext(ctx, "respond formatting failed", slog.Any("error", err))
				return err
			}
			out = o
			return nil
		},
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return zero, err
		}
	}

	logger.InfoContext(ctx, "operation finished",
		slog.Duration("duration", time.Since(start)),
	)

	return out, nil
}

// IsExecutionError checks if an error came from a pipeline step.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError

	return errors.As(err, &execErr)
}

// GetExecutionStep reports which pipeline step err failed in.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}
