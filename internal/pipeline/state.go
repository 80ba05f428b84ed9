package pipeline

import "vidbase-backend/internal/models"

// transitions is the closed status graph. Forward-only, except recovery:
// reprocessing re-enters at transcribing and restarts the whole
// transcript -> chunk -> embed sequence, never resuming mid-step.
var transitions = map[string][]string{
	models.StatusPending:      {models.StatusUploading, models.StatusTranscribing},
	models.StatusUploading:    {models.StatusTranscribing, models.StatusFailed},
	models.StatusTranscribing: {models.StatusProcessing, models.StatusFailed},
	models.StatusProcessing:   {models.StatusEmbedding, models.StatusFailed},
	models.StatusEmbedding:    {models.StatusCompleted, models.StatusFailed},
	models.StatusCompleted:    {models.StatusTranscribing},
	models.StatusFailed:       {models.StatusTranscribing},
}

// CanTransition reports whether the status graph allows from -> to.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EntryStates lists every status from which `to` is directly reachable,
// for use as the expected-state set in a compare-and-set transition.
func EntryStates(to string) []string {
	var from []string
	for state, nexts := range transitions {
		for _, next := range nexts {
			if next == to {
				from = append(from, state)
				break
			}
		}
	}
	return from
}

// ReclaimStates lists every status a reprocess may pull back into
// transcribing, including the mid-pipeline states. The queue pops events
// destructively, so a worker that dies after claiming a video leaves it
// parked in transcribing/processing/embedding with no redelivery coming;
// reclaiming from those states is the recovery path. The per-video lock
// keeps a reclaim from racing a live run.
func ReclaimStates() []string {
	states := make([]string, 0, len(transitions))
	for state := range transitions {
		states = append(states, state)
	}
	return states
}
