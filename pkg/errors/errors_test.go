package errors_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal", errors.CodeInternal, "unexpected failure"},
		{"invalid structure", errors.CodeInvalidStructure, "receptor has 0 atoms"},
		{"all runs failed", errors.CodeAllRunsFailed, "job j-1 produced no poses"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)
			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestError_Format(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.CodeMalformedOutput, "no poses").WithDetail("run=j-1-s3")
	assert.Equal(t, "[DOCK_004] no poses: run=j-1-s3", ae.Error())

	wrapped := errors.Wrap(fmt.Errorf("exit status 137"), errors.CodeEngineFailed, "vina failed")
	assert.Equal(t, "[DOCK_006] vina failed: exit status 137", wrapped.Error())
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "ignored"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("connection refused")
	ae := errors.Wrap(root, errors.CodeEngineUnavailable, "docker daemon unreachable")

	assert.True(t, stderrors.Is(ae, root))
	var target *errors.AppError
	require.True(t, stderrors.As(ae, &target))
	assert.Equal(t, errors.CodeEngineUnavailable, target.Code)
}

func TestWrap_UnknownCodeKeepsOriginal(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.CodeRunTimedOut, "seed 3 exceeded 30s")
	outer := errors.Wrap(inner, errors.CodeUnknown, "run failed")
	assert.Equal(t, errors.CodeRunTimedOut, outer.Code)
}

func TestWithDetail_DoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	base := errors.InvalidParam("bad top-k")
	derived := base.WithDetail("top_k=0")
	assert.Empty(t, base.Detail)
	assert.Equal(t, "top_k=0", derived.Detail)

	var nilErr *errors.AppError
	assert.Nil(t, nilErr.WithDetail("x"))
	assert.Nil(t, nilErr.WithCause(stderrors.New("x")))
}

// ─────────────────────────────────────────────────────────────────────────────
// Inspection
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode_WalksNestedAppErrors(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.CodeEngineUnavailable, "binary missing")
	outer := errors.Wrap(inner, errors.CodeEngineFailed, "run failed")
	stdWrapped := fmt.Errorf("job: %w", outer)

	assert.True(t, errors.IsCode(stdWrapped, errors.CodeEngineFailed))
	assert.True(t, errors.IsCode(stdWrapped, errors.CodeEngineUnavailable))
	assert.False(t, errors.IsCode(stdWrapped, errors.CodeMalformedOutput))
	assert.False(t, errors.IsCode(stderrors.New("plain"), errors.CodeInternal))
	assert.False(t, errors.IsCode(nil, errors.CodeInternal))
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsTransient(errors.New(errors.CodeEngineUnavailable, "x")))
	assert.False(t, errors.IsTransient(errors.New(errors.CodeRunTimedOut, "x")))
	assert.False(t, errors.IsTransient(errors.MalformedOutput("x")))
	assert.False(t, errors.IsTransient(nil))
}

func TestIsTimeout(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsTimeout(errors.New(errors.CodeRunTimedOut, "x")))
	assert.True(t, errors.IsTimeout(fmt.Errorf("wait: %w", context.DeadlineExceeded)))
	assert.False(t, errors.IsTimeout(context.Canceled))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsNotFound(errors.NotFound("job j-9")))
	assert.False(t, errors.IsNotFound(errors.Internal("boom")))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("x")))
	assert.Equal(t, errors.CodeInvalidStructure, errors.GetCode(errors.InvalidStructure("x")))
}

//Personal.AI order the ending
