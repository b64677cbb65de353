package state

// Status is the closed status enum shared by every work item kind.
// Translation to any external encoding happens at the REST boundary only.
type Status string

const (
	Open       = Status("OPEN")
	InProgress = Status("IN_PROGRESS")
	Done       = Status("DONE")
	Cancelled  = Status("CANCELLED")
)

const (
	ActionStart  = "start"
	ActionStop   = "stop"
	ActionCancel = "cancel"
	ActionReopen = "reopen"
)

type Transition struct {
	Name string `json:"name"`
	From Status `json:"from"`
	To   Status `json:"to"`
}

// stateless object, just used for state computing
type StateMachine struct {
	Statuses    []Status     `json:"statuses"`
	Transitions []Transition `json:"transitions"`
}

// WorkItemStateMachine is the single lifecycle shared by work orders and
// extra jobs.
var WorkItemStateMachine = NewStateMachine(
	[]Status{Open, InProgress, Done, Cancelled},
	[]Transition{
		{Name: ActionStart, From: Open, To: InProgress},
		{Name: ActionStop, From: InProgress, To: Done},
		{Name: ActionCancel, From: Open, To: Cancelled},
		{Name: ActionCancel, From: InProgress, To: Cancelled},
		{Name: ActionReopen, From: Done, To: Open},
		{Name: ActionReopen, From: Cancelled, To: Open},
	})

func NewStateMachine(statuses []Status, transitions []Transition) *StateMachine {
	return &StateMachine{Statuses: statuses, Transitions: transitions}
}

func (sm *StateMachine) HasStatus(status Status) bool {
	for _, s := range sm.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (sm *StateMachine) AvailableTransitions(fromStatus Status, toStatus Status) []Transition {
	r := []Transition{}
	for _, transition := range sm.Transitions {
		if (fromStatus == "" || fromStatus == transition.From) && (toStatus == "" || toStatus == transition.To) {
			r = append(r, transition)
		}
	}
	return r
}

// FindTransition resolves a named action against the current status.
func (sm *StateMachine) FindTransition(action string, fromStatus Status) (Transition, bool) {
	for _, transition := range sm.Transitions {
		if transition.Name == action && transition.From == fromStatus {
			return transition, true
		}
	}
	return Transition{}, false
}
