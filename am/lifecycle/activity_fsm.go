// Package lifecycle implements the pure state-transition tables driving
// activities and services through their lifecycle (spec.md §4.2), plus
// the Driver that turns one table lookup into a scheduled client call
// and a committed pending task.
package lifecycle

import "github.com/open-vela/amd/am/structs"

// stage is the stable-state axis of the activity transition table;
// *-ING states collapse onto their pending stable stage for lookup
// purposes, matching spec.md §4.2: "intermediate *-ING states are
// treated as their pending stable state".
type stage int

const (
	stageCreate stage = iota
	stageStart
	stageResume
	stagePause
	stageStop
	stageDestroy
)

func activityStage(s structs.ActivityStatus) stage {
	switch s {
	case structs.ActivityCreating, structs.ActivityCreated:
		return stageCreate
	case structs.ActivityStarting, structs.ActivityStarted:
		return stageStart
	case structs.ActivityResuming, structs.ActivityResumed:
		return stageResume
	case structs.ActivityPausing, structs.ActivityPaused:
		return stagePause
	case structs.ActivityStopping, structs.ActivityStopped:
		return stageStop
	default:
		return stageDestroy
	}
}

// pendingStatus is the *-ING status the driver parks an activity in
// while issuing the schedule call for reaching stage.
func pendingStatus(s stage) structs.ActivityStatus {
	switch s {
	case stageCreate:
		return structs.ActivityCreating
	case stageStart:
		return structs.ActivityStarting
	case stageResume:
		return structs.ActivityResuming
	case stagePause:
		return structs.ActivityPausing
	case stageStop:
		return structs.ActivityStopping
	default:
		return structs.ActivityDestroying
	}
}

// activityTable is the literal transition table from spec.md §4.2: for
// (current, target) it gives the *next* stage to move toward, or
// stageNone (-1) when there is nothing to do.
const stageNone stage = -1

var activityTable = map[stage]map[stage]stage{
	stageCreate: {
		stageCreate:  stageNone,
		stageStart:   stageStart,
		stageResume:  stageStart,
		stagePause:   stageStart,
		stageStop:    stageStart,
		stageDestroy: stageDestroy,
	},
	stageStart: {
		stageCreate:  stageNone,
		stageStart:   stageNone,
		stageResume:  stageResume,
		stagePause:   stagePause,
		stageStop:    stageStop,
		stageDestroy: stageStop,
	},
	stageResume: {
		stageCreate:  stageNone,
		stageStart:   stageStart,
		stageResume:  stageNone,
		stagePause:   stagePause,
		stageStop:    stagePause,
		stageDestroy: stagePause,
	},
	stagePause: {
		stageCreate:  stageNone,
		stageStart:   stageStart,
		stageResume:  stageResume,
		stagePause:   stageNone,
		stageStop:    stageStop,
		stageDestroy: stageStop,
	},
	stageStop: {
		stageCreate:  stageNone,
		stageStart:   stageStart,
		stageResume:  stageStart,
		stagePause:   stageNone,
		stageStop:    stageNone,
		stageDestroy: stageDestroy,
	},
	stageDestroy: {
		stageCreate:  stageNone,
		stageStart:   stageNone,
		stageResume:  stageNone,
		stagePause:   stageNone,
		stageStop:    stageNone,
		stageDestroy: stageNone,
	},
}

// NextActivityStep computes the single next stable status to move
// toward on the way from current to target, or (current, false) if
// current already satisfies target (spec.md §4.2's table, "—" entries).
func NextActivityStep(current, target structs.ActivityStatus) (structs.ActivityStatus, bool) {
	curStage := activityStage(current)
	targetStage := activityStage(target)
	next, ok := activityTable[curStage][targetStage]
	if !ok || next == stageNone {
		return current, false
	}
	return pendingStatus(next), true
}
