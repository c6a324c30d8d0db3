package state

import (
	"fmt"
	"sort"

	"github.com/aretw0/gantry/pkg/domain"
)

// Summary groups slot ids into the user-facing status buckets.
// pre_check, post_check and retrying slots are shown as in progress.
type Summary struct {
	PipelineID string                `json:"pipeline_id"`
	Status     domain.PipelineStatus `json:"status"`
	Progress   string                `json:"progress"`
	Completed  []string              `json:"completed"`
	InProgress []string              `json:"in_progress"`
	Ready      []string              `json:"ready"`
	Blocked    []string              `json:"blocked"`
	Pending    []string              `json:"pending"`
	Failed     []string              `json:"failed"`
	Skipped    []string              `json:"skipped"`
}

// Summarize builds a Summary with ids sorted within each bucket.
func Summarize(s domain.PipelineState) Summary {
	ids := make([]string, 0, len(s.Slots))
	for id := range s.Slots {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sum := Summary{
		PipelineID: s.PipelineID,
		Status:     s.Status,
		Completed:  []string{},
		InProgress: []string{},
		Ready:      []string{},
		Blocked:    []string{},
		Pending:    []string{},
		Failed:     []string{},
		Skipped:    []string{},
	}
	for _, id := range ids {
		switch s.Slots[id].Status {
		case domain.SlotCompleted:
			sum.Completed = append(sum.Completed, id)
		case domain.SlotReady:
			sum.Ready = append(sum.Ready, id)
		case domain.SlotBlocked:
			sum.Blocked = append(sum.Blocked, id)
		case domain.SlotPending:
			sum.Pending = append(sum.Pending, id)
		case domain.SlotFailed:
			sum.Failed = append(sum.Failed, id)
		case domain.SlotSkipped:
			sum.Skipped = append(sum.Skipped, id)
		default:
			sum.InProgress = append(sum.InProgress, id)
		}
	}
	sum.Progress = fmt.Sprintf("%d/%d slots completed", len(sum.Completed), len(ids))
	return sum
}
