package creative

import "fmt"

// nextState maps each working state to its successor on a successful advance.
var nextState = map[State]State{
	StateInitiated:         StateBriefPending,
	StateBriefPending:      StateScriptPending,
	StateScriptPending:     StateScriptReview,
	StateScriptReview:      StateStoryboardPending,
	StateStoryboardPending: StateStoryboardReady,
	StateStoryboardReady:   StateRenderPending,
	StateRenderPending:     StatePreviewReady,
	StatePreviewReady:      StateCompleted,
}

// stageOrder indexes the linear pipeline for ordering assertions.
var stageOrder = map[State]int{
	StateInitiated:         0,
	StateBriefPending:      1,
	StateScriptPending:     2,
	StateScriptReview:      3,
	StateStoryboardPending: 4,
	StateStoryboardReady:   5,
	StateRenderPending:     6,
	StatePreviewReady:      7,
	StateCompleted:         8,
}

// approvalStates require a dedicated approval call; advance refuses them.
var approvalStates = map[State]bool{
	StateScriptReview: true,
	StatePreviewReady: true,
}

// terminal reports whether no further transitions may leave the state.
func terminal(s State) bool {
	return s == StateCompleted || s == StateFailed
}

// ensureTransition validates a state change against the declared ordering:
// forward one stage at a time, failed reachable from any non-terminal state,
// paused as a detour that returns to the snapshotted state.
func ensureTransition(from, to State) error {
	if terminal(from) {
		return fmt.Errorf("%w: project is %s", ErrInvalidTransition, from)
	}
	switch to {
	case StateFailed:
		return nil
	case StatePaused:
		if from == StatePaused {
			return fmt.Errorf("%w: already paused", ErrInvalidTransition)
		}
		return nil
	}
	if from == StatePaused {
		// resume restores the snapshotted state; any target stage is legal
		// because the snapshot was legal when taken
		if _, ok := stageOrder[to]; ok {
			return nil
		}
		return fmt.Errorf("%w: cannot leave paused for %s", ErrInvalidTransition, to)
	}
	if nextState[from] == to {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
