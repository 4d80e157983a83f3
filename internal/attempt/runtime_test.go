package attempt

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/coursekit-go-api/internal/models"
)

func TestRuntimeAttachGetDetach(t *testing.T) {
	runtime := NewRuntime(zerolog.Nop())
	session := NewSession(1, 10, 5, []uint{101}, 0, &recordingSubmitter{}, zerolog.Nop())

	runtime.Attach(session)
	require.Equal(t, 1, runtime.Len())
	require.Equal(t, StateInProgress, session.State())

	got, ok := runtime.Get(1)
	require.True(t, ok)
	require.Same(t, session, got)

	runtime.Detach(1)
	require.Equal(t, 0, runtime.Len())
	_, ok = runtime.Get(1)
	require.False(t, ok)
}

func TestRuntimeActiveForFindsInProgressSession(t *testing.T) {
	runtime := NewRuntime(zerolog.Nop())
	session := NewSession(1, 10, 5, []uint{101}, 0, &recordingSubmitter{}, zerolog.Nop())
	runtime.Attach(session)

	active, ok := runtime.ActiveFor(10, 5)
	require.True(t, ok)
	require.Same(t, session, active)

	_, ok = runtime.ActiveFor(10, 6)
	require.False(t, ok)
	_, ok = runtime.ActiveFor(11, 5)
	require.False(t, ok)
}

func TestRuntimeActiveForIgnoresCompletedSessions(t *testing.T) {
	runtime := NewRuntime(zerolog.Nop())
	session := NewSession(1, 10, 5, []uint{101}, 0, &recordingSubmitter{}, zerolog.Nop())
	runtime.Attach(session)
	require.NoError(t, session.Submit(context.Background()))

	_, ok := runtime.ActiveFor(10, 5)
	require.False(t, ok)
}

func TestDetachStopsTickDelivery(t *testing.T) {
	// A detached session no longer receives ticks, so an abandoned screen
	// cannot drive a stale auto-submit.
	runtime := NewRuntime(zerolog.Nop())
	submitter := &recordingSubmitter{}
	session := NewSession(1, 10, 5, []uint{101}, 1, submitter, zerolog.Nop())
	runtime.Attach(session)

	runtime.Detach(1)

	for i := 0; i < 120; i++ {
		if live, ok := runtime.Get(1); ok {
			require.NoError(t, live.Tick(context.Background()))
		}
	}
	require.Equal(t, 0, submitter.callCount())
}

func TestRemainingAttempts(t *testing.T) {
	require.Equal(t, 0, RemainingAttempts(2, 2))
	require.Equal(t, 1, RemainingAttempts(2, 1))
	require.Equal(t, 0, RemainingAttempts(2, 5))
	require.Equal(t, models.UnlimitedAttempts, RemainingAttempts(models.UnlimitedAttempts, 99))
}

func TestStartLabel(t *testing.T) {
	require.Equal(t, "No attempts remaining", StartLabel(2, 2))
	require.Equal(t, "Start quiz", StartLabel(2, 0))
	require.Equal(t, "Retake quiz (1 remaining)", StartLabel(2, 1))
	require.Equal(t, "Start quiz", StartLabel(models.UnlimitedAttempts, 0))
	require.Equal(t, "Retake quiz", StartLabel(models.UnlimitedAttempts, 3))
}
