package mirror

// ActionKind discriminates the two mutating operations the engine performs.
type ActionKind string

const (
	ActionCopy   ActionKind = "copy"
	ActionDelete ActionKind = "delete"
)

// ActionStatus tracks an action through planning, execution and resume.
type ActionStatus string

const (
	StatusPending  ActionStatus = "pending"
	StatusInFlight ActionStatus = "inflight"
	StatusDone     ActionStatus = "done"
	StatusFailed   ActionStatus = "failed"
)

// Action is one planned mutation. Copy actions carry the source record and a
// destination folder; delete actions carry the remote record to remove.
type Action struct {
	Kind    ActionKind
	Source  *FileRecord
	DestRef string
}

// Plan is an ordered set of actions against one destination root. Order is
// the order entries are journaled; independent actions may still complete
// out of order during execution.
type Plan struct {
	DestRoot string
	Actions  []*Action
}

// NewCopyPlan builds a plan that copies each record into destRoot,
// flattening directory structure: every file lands directly under destRoot
// under its base name.
func NewCopyPlan(destRoot string, records []*FileRecord) *Plan {
	plan := &Plan{DestRoot: destRoot}
	for _, rec := range records {
		plan.Actions = append(plan.Actions, &Action{
			Kind:    ActionCopy,
			Source:  rec,
			DestRef: destRoot,
		})
	}
	return plan
}

// NewDeletePlan builds a plan that removes every delete record of the given
// duplicate groups.
func NewDeletePlan(destRoot string, groups []*DupGroup) *Plan {
	plan := &Plan{DestRoot: destRoot}
	for _, group := range groups {
		for _, rec := range group.Delete {
			plan.Actions = append(plan.Actions, &Action{
				Kind:    ActionDelete,
				Source:  rec,
				DestRef: rec.RemoteID,
			})
		}
	}
	return plan
}

// Empty reports whether the plan has no actions.
func (p *Plan) Empty() bool {
	return len(p.Actions) == 0
}
