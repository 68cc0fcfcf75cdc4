package stack

import (
	"testing"

	"github.com/open-vela/amd/am/taskboard"
	"github.com/stretchr/testify/require"
)

func TestFactory_SelectsBySystemUIFlag(t *testing.T) {
	board := taskboard.New(nil, false)
	d := &fakeDriver{board: board}
	std := NewStandardManager(d, board, nil, nil, nil)
	sysui := NewSystemUIManager(d, nil)
	f := Factory{Standard: std, SystemUI: sysui}

	require.Equal(t, std, f.For(false))
	require.Equal(t, sysui, f.For(true))
}
