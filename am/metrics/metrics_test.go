package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetupDisabledReturnsNilHandler(t *testing.T) {
	handler, err := Setup(Config{Enabled: false})
	require.NoError(t, err)
	require.Nil(t, handler)
}

func TestCollectorSamplesWiredGaugesOnly(t *testing.T) {
	var priorityCalls, boardCalls int
	c := NewCollector(Gauges{
		PriorityListSize: func() int {
			priorityCalls++
			return 3
		},
	}, 5*time.Millisecond, nil)

	c.sample()
	c.sample()
	require.Equal(t, 2, priorityCalls)
	require.Equal(t, 0, boardCalls)
}

func TestCollectorStartStopDoesNotPanic(t *testing.T) {
	calls := make(chan int, 8)
	c := NewCollector(Gauges{
		PendingTaskBoardDepth: func() int {
			calls <- 1
			return 0
		},
	}, 5*time.Millisecond, nil)

	c.Start()
	time.Sleep(25 * time.Millisecond)
	c.Stop()
	require.NotEmpty(t, calls)
}
