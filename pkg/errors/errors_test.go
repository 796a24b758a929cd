package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOfUnwrapsWrappedErrors(t *testing.T) {
	base := New(CodeInvalidTransition, "cannot move").WithMeta("from", "COMPLETED")
	wrapped := fmt.Errorf("executor: %w", base)

	require.Equal(t, CodeInvalidTransition, CodeOf(wrapped))
	require.True(t, IsCode(wrapped, CodeInvalidTransition))
	require.False(t, IsCode(wrapped, CodeNotFound))
	require.Equal(t, CodeUnknown, CodeOf(fmt.Errorf("plain")))
}

func TestAsWrapsPlainErrorsAsInternal(t *testing.T) {
	require.Nil(t, As(nil))

	ae := As(fmt.Errorf("disk full"))
	require.Equal(t, CodeInternal, ae.Code)
	require.EqualError(t, ae.Err, "disk full")

	orig := New(CodeConflict, "lost update")
	require.Same(t, orig, As(orig))
}

func TestContextDeadlineMapsToDeadlineCode(t *testing.T) {
	err := fmt.Errorf("load project: %w", context.DeadlineExceeded)
	require.Equal(t, CodeDeadline, CodeOf(err))
	require.Equal(t, CodeDeadline, As(err).Code)
	require.Equal(t, CodeUnknown, CodeOf(context.Canceled))
}
