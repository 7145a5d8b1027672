package webtab

// Phase is the lifecycle stage of a web tab.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseCreating
	PhaseActive
	PhaseFullscreen
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseCreating:
		return "creating"
	case PhaseActive:
		return "active"
	case PhaseFullscreen:
		return "fullscreen"
	case PhaseClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// Action is what Sync does for one item.
type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionUpdate
	ActionRecreate
	ActionClose
)

func (a Action) String() string {
	return [...]string{"none", "create", "update", "recreate", "close"}[a]
}

type trigger struct {
	hasURL     bool
	hasTab     bool
	urlMatches bool
}

// transitions maps the item/tab situation to the action taken. urlMatches
// is only meaningful when both a URL and a tab exist.
var transitions = map[trigger]Action{
	{hasURL: false, hasTab: false}:                  ActionNone,
	{hasURL: false, hasTab: true}:                   ActionClose,
	{hasURL: true, hasTab: false}:                   ActionCreate,
	{hasURL: true, hasTab: true, urlMatches: true}:  ActionUpdate,
	{hasURL: true, hasTab: true, urlMatches: false}: ActionRecreate,
}

// Decide looks up the transition table.
func Decide(hasURL, hasTab, urlMatches bool) Action {
	if !hasURL || !hasTab {
		urlMatches = false
	}
	return transitions[trigger{hasURL: hasURL, hasTab: hasTab, urlMatches: urlMatches}]
}
