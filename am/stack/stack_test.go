package stack

import (
	"testing"

	"github.com/open-vela/amd/am/structs"
	"github.com/stretchr/testify/require"
)

func TestActivityStack_PushPopFind(t *testing.T) {
	s := NewActivityStack("com.demo")
	main := &structs.ActivityRecord{UniqueName: "com.demo/Main", Token: structs.NewToken("act")}
	detail := &structs.ActivityRecord{UniqueName: "com.demo/Detail", Token: structs.NewToken("act")}

	s.Push(main)
	s.Push(detail)

	require.Equal(t, 2, s.Size())
	require.Equal(t, detail, s.Top())
	require.Equal(t, main, s.Root())
	require.Equal(t, detail, s.FindByUniqueName("com.demo/Detail"))
	require.Equal(t, main, s.FindByToken(main.Token))
	require.Equal(t, []*structs.ActivityRecord{detail}, s.Above(main))

	require.Equal(t, detail, s.PopTop())
	require.Equal(t, 1, s.Size())
}

func TestActivityStack_RemoveByRef(t *testing.T) {
	s := NewActivityStack("com.demo")
	a := &structs.ActivityRecord{UniqueName: "com.demo/A"}
	b := &structs.ActivityRecord{UniqueName: "com.demo/B"}
	s.Push(a)
	s.Push(b)

	require.True(t, s.RemoveByRef(a))
	require.Equal(t, 1, s.Size())
	require.Equal(t, b, s.Top())
	require.False(t, s.RemoveByRef(a))
}
