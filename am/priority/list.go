// Package priority implements the process priority list and low-memory
// killer (spec.md §4.6): a doubly-linked ordered list of pids with a
// background pivot, OOM-score computation, and a memory-pressure-driven
// eviction policy.
package priority

import "github.com/open-vela/amd/am/structs"

// OOM adjustment constants (spec.md §4.6); values follow the Android/AOSP
// convention the original C++ core itself borrows (lower is more
// protected).
//
// The three background bands are deliberately uneven (not an equal split
// of [MinAdj, MaxAdj]): they mirror the original's own per-level
// constants, chosen so they line up with DefaultConfig's documented oom
// thresholds {100, 500, 700} — HighAdj never crosses any default
// threshold (never evicted), MiddleAdj's floor sits exactly on the
// harshest threshold, LowAdj spans the two least-severe thresholds so
// low-priority background work is first to go under any memory pressure.
const (
	PersistentProcAdj = -12
	ForegroundAppAdj  = 0
	SystemHomeAppAdj  = 1

	HighAdjMin   = 10
	HighAdjMax   = 99
	MiddleAdjMin = 100
	MiddleAdjMax = 600
	LowAdjMin    = 700
	LowAdjMax    = 800

	MinAdj = HighAdjMin
	MaxAdj = LowAdjMax
)

// node is one arena slot. An arena of index-linked nodes (rather than
// heap pointers for prev/next) avoids the shared-mutable-pointer hazards
// spec.md §9 calls out, and mirrors how the teacher indexes its
// in-memory allocation/evaluation broker state by integer id instead of
// chasing pointers.
type node struct {
	info structs.PidPriorityInfo
	prev int // arena index, -1 if none
	next int // arena index, -1 if none

	// background mirrors which side of the pivot this node is
	// logically on. Kept as an explicit flag (rather than inferred from
	// position relative to backgroundPos) because backgroundPos is just
	// an *insertion anchor* ("just before backgroundPos") — inserting
	// ahead of it does not change which side of the conceptual
	// foreground/background boundary a node belongs to.
	background bool
	inUse      bool
}

const none = -1

// List is the doubly-linked priority list: foreground head, home
// pivot, background tail (spec.md §4.3, §4.6).
type List struct {
	nodes []node
	byPid map[int]int // pid -> arena index

	head int // foreground head, none if empty
	tail int // background tail, none if empty

	// backgroundPos is the arena index of the first background node
	// (i.e. the node "just before" which intoBackground/add insert), or
	// none if there is no background segment yet. It marks the
	// home-task boundary (spec.md §4.6).
	backgroundPos int

	// levelCounts powers analyse()'s deterministic per-level spread.
	levelCounts map[structs.PriorityLevel]int

	// homePid is the pid of the home task's root process, tracked
	// separately from list position: analyse() needs to know which
	// live pid is "home" regardless of exactly where Add/IntoBackground
	// happened to place it relative to backgroundPos.
	homePid int
}

// New creates an empty priority list.
func New() *List {
	return &List{
		byPid:         make(map[int]int),
		head:          none,
		tail:          none,
		backgroundPos: none,
		homePid:       -1,
	}
}

// MarkHome records pid as the home task's process for analyse().
func (l *List) MarkHome(pid int) { l.homePid = pid }

// HomePid returns the pid last marked via MarkHome, or (-1, false) if
// none has been marked (or it has since been removed).
func (l *List) HomePid() (int, bool) {
	if l.homePid == -1 {
		return -1, false
	}
	if _, ok := l.byPid[l.homePid]; !ok {
		return -1, false
	}
	return l.homePid, true
}

func (l *List) alloc(info structs.PidPriorityInfo, background bool) int {
	for i := range l.nodes {
		if !l.nodes[i].inUse {
			l.nodes[i] = node{info: info, prev: none, next: none, inUse: true, background: background}
			return i
		}
	}
	l.nodes = append(l.nodes, node{info: info, prev: none, next: none, inUse: true, background: background})
	return len(l.nodes) - 1
}

func (l *List) unlink(idx int) {
	n := &l.nodes[idx]
	if n.prev != none {
		l.nodes[n.prev].next = n.next
	} else {
		l.head = n.next
	}
	if n.next != none {
		l.nodes[n.next].prev = n.prev
	} else {
		l.tail = n.prev
	}
	if l.backgroundPos == idx {
		l.backgroundPos = n.next
	}
	n.prev, n.next = none, none
}

func (l *List) insertBefore(idx, beforeIdx int) {
	n := &l.nodes[idx]
	if beforeIdx == none {
		// insert at tail
		n.prev = l.tail
		n.next = none
		if l.tail != none {
			l.nodes[l.tail].next = idx
		} else {
			l.head = idx
		}
		l.tail = idx
		return
	}
	before := &l.nodes[beforeIdx]
	n.prev = before.prev
	n.next = beforeIdx
	if before.prev != none {
		l.nodes[before.prev].next = idx
	} else {
		l.head = idx
	}
	before.prev = idx
}

func (l *List) insertHead(idx int) {
	n := &l.nodes[idx]
	n.prev = none
	n.next = l.head
	if l.head != none {
		l.nodes[l.head].prev = idx
	} else {
		l.tail = idx
	}
	l.head = idx
}

// Add inserts pid: at head if foreground, else just before the
// background pivot (spec.md §4.6: "add(pid, isForeground, level)").
func (l *List) Add(pid int, isForeground bool, level structs.PriorityLevel) {
	if _, exists := l.byPid[pid]; exists {
		return
	}
	idx := l.alloc(structs.PidPriorityInfo{Pid: pid, PriorityLevel: level}, !isForeground)
	l.byPid[pid] = idx
	if isForeground {
		l.insertHead(idx)
	} else {
		l.insertBefore(idx, l.backgroundPos)
		if l.backgroundPos == none {
			l.backgroundPos = idx
		}
	}
}

// PushForeground unlinks pid and moves it to head, updating
// backgroundPos if the node crossed it (spec.md §4.6).
func (l *List) PushForeground(pid int, wakeClock int64) bool {
	idx, ok := l.byPid[pid]
	if !ok {
		return false
	}
	l.unlink(idx)
	l.insertHead(idx)
	l.nodes[idx].info.LastWakeClock = wakeClock
	l.nodes[idx].background = false
	return true
}

// IntoBackground unlinks pid and moves it to just-before backgroundPos
// (or tail if none), per spec.md §4.6.
func (l *List) IntoBackground(pid int) bool {
	idx, ok := l.byPid[pid]
	if !ok {
		return false
	}
	l.unlink(idx)
	l.insertBefore(idx, l.backgroundPos)
	if l.backgroundPos == none {
		l.backgroundPos = idx
	}
	l.nodes[idx].background = true
	return true
}

// SetBackgroundPivot repoints the insertion anchor (backgroundPos) at
// pid's node, without altering any node's foreground/background
// classification. Add and IntoBackground use backgroundPos only to
// decide where a new or moved node lands in list order.
func (l *List) SetBackgroundPivot(pid int) bool {
	idx, ok := l.byPid[pid]
	if !ok {
		return false
	}
	l.backgroundPos = idx
	return true
}

// Remove unlinks and frees pid's node.
func (l *List) Remove(pid int) bool {
	idx, ok := l.byPid[pid]
	if !ok {
		return false
	}
	l.unlink(idx)
	l.nodes[idx] = node{prev: none, next: none, inUse: false}
	delete(l.byPid, pid)
	return true
}

// Get returns a copy of pid's current PidPriorityInfo.
func (l *List) Get(pid int) (structs.PidPriorityInfo, bool) {
	idx, ok := l.byPid[pid]
	if !ok {
		return structs.PidPriorityInfo{}, false
	}
	return l.nodes[idx].info, true
}

// Len reports the number of live pids.
func (l *List) Len() int { return len(l.byPid) }

// Walk iterates head (most-foreground) to tail (most-background),
// calling fn with a pointer into the arena so callers (analyse) can
// mutate OomScore in place.
func (l *List) Walk(fn func(info *structs.PidPriorityInfo)) {
	for idx := l.head; idx != none; idx = l.nodes[idx].next {
		fn(&l.nodes[idx].info)
	}
}

// Pids returns the live pid set in foreground-to-background order.
func (l *List) Pids() []int {
	out := make([]int, 0, len(l.byPid))
	for idx := l.head; idx != none; idx = l.nodes[idx].next {
		out = append(out, l.nodes[idx].info.Pid)
	}
	return out
}

// PidsAtOrAbove returns every live pid whose last-computed OomScore is
// >= threshold, in foreground-to-background order. Callers should run
// Analyse first so scores reflect the current list shape.
func (l *List) PidsAtOrAbove(threshold int) []int {
	var out []int
	l.Walk(func(info *structs.PidPriorityInfo) {
		if info.OomScore >= threshold {
			out = append(out, info.Pid)
		}
	})
	return out
}

// IsBackground reports whether pid is currently on the background side
// of the pivot.
func (l *List) IsBackground(pid int) bool {
	idx, ok := l.byPid[pid]
	if !ok {
		return false
	}
	return l.nodes[idx].background
}
