package lifecycle

import (
	"testing"

	"github.com/open-vela/amd/am/structs"
	"github.com/stretchr/testify/require"
)

func TestNextActivityStep_TableSpotChecks(t *testing.T) {
	cases := []struct {
		name    string
		current structs.ActivityStatus
		target  structs.ActivityStatus
		want    structs.ActivityStatus
		wantOK  bool
	}{
		{"create->resume goes through start", structs.ActivityCreated, structs.ActivityResumed, structs.ActivityStarting, true},
		{"resume->resume is a no-op", structs.ActivityResumed, structs.ActivityResumed, structs.ActivityResumed, false},
		{"resume->destroy goes through pause", structs.ActivityResumed, structs.ActivityDestroyed, structs.ActivityPausing, true},
		{"paused->resume direct", structs.ActivityPaused, structs.ActivityResumed, structs.ActivityResuming, true},
		{"stopped->destroy direct", structs.ActivityStopped, structs.ActivityDestroyed, structs.ActivityDestroying, true},
		{"destroyed is terminal", structs.ActivityDestroyed, structs.ActivityResumed, structs.ActivityDestroyed, false},
		{"created->stop goes through start", structs.ActivityCreated, structs.ActivityStopped, structs.ActivityStarting, true},
		{"started->pause direct", structs.ActivityStarted, structs.ActivityPaused, structs.ActivityPausing, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NextActivityStep(tc.current, tc.target)
			require.Equal(t, tc.wantOK, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNextActivityStep_FullWalkToResumed(t *testing.T) {
	status := structs.ActivityCreating
	target := structs.ActivityResumed
	steps := []structs.ActivityStatus{}
	for i := 0; i < 10; i++ {
		next, ok := NextActivityStep(status, target)
		if !ok {
			break
		}
		steps = append(steps, next)
		// Simulate the client reporting the stable counterpart of next.
		status = next
	}
	require.Equal(t, []structs.ActivityStatus{
		structs.ActivityStarting,
		structs.ActivityResuming,
	}, steps)
}
