package priority

import "github.com/open-vela/amd/am/structs"

// levelBandStart returns the first oom-score integer a background
// level's counter may hand out, from the named HIGH/MIDDLE/LOW bands
// (HighAdjMin..LowAdjMax), HIGH most protected, LOW first to go, per
// spec.md §4.6's "deterministic spread".
func levelBandStart(level structs.PriorityLevel) int {
	switch level {
	case structs.PriorityHigh:
		return HighAdjMin
	case structs.PriorityMiddle:
		return MiddleAdjMin
	default: // PriorityLow and anything unrecognized falls to the last (LOW) band
		return LowAdjMin
	}
}

func levelBandEnd(level structs.PriorityLevel) int {
	switch level {
	case structs.PriorityHigh:
		return HighAdjMax
	case structs.PriorityMiddle:
		return MiddleAdjMax
	default:
		return LowAdjMax
	}
}

// Analyse recomputes OomScore for every live pid per spec.md §4.6:
//
//	persistent foreground = PERSISTENT_PROC_ADJ
//	foreground             = min(declared, FOREGROUND_APP_ADJ)
//	home                   = min(declared, SYSTEM_HOME_APP_ADJ)
//	background             = per-level deterministic spread [MIN_ADJ, MAX_ADJ]
//
// It is a pure function of the list's current contents and is safe to
// call as often as needed (on every memory-pressure event, or a
// periodic poll) — it never reorders the list, only rewrites scores.
func (l *List) Analyse() {
	counters := map[structs.PriorityLevel]int{}
	homePid, haveHome := l.HomePid()

	for idx := l.head; idx != none; idx = l.nodes[idx].next {
		info := &l.nodes[idx].info
		inBackground := l.nodes[idx].background

		declared := levelBandStart(info.PriorityLevel)

		switch {
		case haveHome && info.Pid == homePid:
			info.OomScore = minInt(declared, SystemHomeAppAdj)
		case !inBackground && info.PriorityLevel == structs.PriorityPersistent:
			info.OomScore = PersistentProcAdj
		case !inBackground:
			info.OomScore = minInt(declared, ForegroundAppAdj)
		default:
			next, ok := counters[info.PriorityLevel]
			if !ok {
				next = levelBandStart(info.PriorityLevel)
			}
			if end := levelBandEnd(info.PriorityLevel); next > end {
				next = end
			}
			info.OomScore = next
			counters[info.PriorityLevel] = next + 1
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
