package apperror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultSeverity(t *testing.T) {
	require.Equal(t, SeverityFatal, New(CodeTopologyLoad, "x").Severity)
	require.Equal(t, SeverityInfo, New(CodePropagationSkip, "x").Severity)
	require.Equal(t, SeverityInfo, New(CodePlannerEmpty, "x").Severity)
	require.Equal(t, SeverityError, New(CodeDeadEnd, "x").Severity)
}

func TestIsAndCode(t *testing.T) {
	err := New(CodeStepLimit, "hop cap")
	require.True(t, Is(err, CodeStepLimit))
	require.False(t, Is(err, CodeDeadEnd))
	require.Equal(t, CodeStepLimit, Code(err))
	require.Equal(t, CodeInternal, Code(errors.New("plain")))
}

func TestIsTerminal(t *testing.T) {
	require.True(t, IsTerminal(ErrDeadEnd))
	require.True(t, IsTerminal(ErrStepLimit))
	require.True(t, IsTerminal(ErrCommitFailure))
	require.False(t, IsTerminal(ErrInvalidAction))
	require.False(t, IsTerminal(ErrPropagationSkip))
	require.False(t, IsTerminal(ErrPlannerEmpty))
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("pool exhausted")
	err := Wrap(cause, CodeCommitFailure, "commit rejected")
	require.ErrorIs(t, err, cause)
}

func TestWithDetails(t *testing.T) {
	err := New(CodeDeadEnd, "no neighbours").WithDetails("node_id", "gs-1")
	require.Equal(t, "gs-1", err.Details["node_id"])
}
