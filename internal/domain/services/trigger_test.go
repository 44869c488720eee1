package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/crossverify/internal/domain/entities"
)

func TestTriggerService_ShouldRun(t *testing.T) {
	triggers := entities.DefaultMatrix().Triggers
	svc := NewTriggerService()

	tests := []struct {
		name  string
		event Event
		want  bool
	}{
		{"push to main", Event{Kind: EventPush, Branch: "main"}, true},
		{"push to feature branch", Event{Kind: EventPush, Branch: "feature/simd"}, false},
		{"pull request against main", Event{Kind: EventPullRequest, Branch: "main"}, true},
		{"pull request against other branch", Event{Kind: EventPullRequest, Branch: "release-0.2"}, true},
		{"unknown event", Event{Kind: "schedule", Branch: "main"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := svc.ShouldRun(triggers, tt.event)
			assert.Equal(t, tt.want, decision.Run)
			assert.NotEmpty(t, decision.Reason)
		})
	}
}

func TestTriggerService_PullRequestsDisabled(t *testing.T) {
	decision := NewTriggerService().ShouldRun(
		entities.Triggers{PushBranches: []string{"main"}},
		Event{Kind: EventPullRequest, Branch: "main"},
	)
	assert.False(t, decision.Run)
}

func TestParseEventKind(t *testing.T) {
	kind, err := ParseEventKind("pull_request")
	require.NoError(t, err)
	assert.Equal(t, EventPullRequest, kind)

	_, err = ParseEventKind("workflow_dispatch")
	assert.Error(t, err)
}
