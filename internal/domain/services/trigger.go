package services

import (
	"fmt"

	"github.com/ochairo/crossverify/internal/domain/entities"
)

// EventKind is a repository event that may start a run
type EventKind string

// Supported repository events
const (
	EventPush        EventKind = "push"
	EventPullRequest EventKind = "pull_request"
)

// Event describes a repository event. For pushes Branch is the updated
// branch, for pull requests it is the base branch.
type Event struct {
	Kind   EventKind
	Branch string
}

// ParseEventKind converts a CLI value into an EventKind
func ParseEventKind(s string) (EventKind, error) {
	switch EventKind(s) {
	case EventPush, EventPullRequest:
		return EventKind(s), nil
	default:
		return "", fmt.Errorf("unknown event %q (expected push or pull_request)", s)
	}
}

// TriggerDecision explains whether an event starts a run
type TriggerDecision struct {
	Run    bool
	Reason string
}

// TriggerService decides whether an event starts a verification run
type TriggerService struct{}

// NewTriggerService creates a new trigger service
func NewTriggerService() *TriggerService {
	return &TriggerService{}
}

// ShouldRun evaluates the matrix triggers against an event
func (s *TriggerService) ShouldRun(triggers entities.Triggers, event Event) TriggerDecision {
	switch event.Kind {
	case EventPush:
		for _, b := range triggers.PushBranches {
			if b == event.Branch {
				return TriggerDecision{Run: true, Reason: fmt.Sprintf("push to %s", b)}
			}
		}
		return TriggerDecision{Reason: fmt.Sprintf("branch %q is not a primary branch", event.Branch)}
	case EventPullRequest:
		if triggers.PullRequest {
			return TriggerDecision{Run: true, Reason: "pull request"}
		}
		return TriggerDecision{Reason: "pull request triggers are disabled"}
	default:
		return TriggerDecision{Reason: fmt.Sprintf("event %q does not trigger runs", event.Kind)}
	}
}
