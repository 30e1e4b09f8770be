package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkfin/be-wf-engine/internal/client"
	"github.com/sparkfin/be-wf-engine/internal/logger"
	"github.com/sparkfin/be-wf-engine/internal/repository"
)

type fakeDirectory struct {
	groups map[string]string // id -> name
	err    error
}

func (f *fakeDirectory) GetGroup(_ context.Context, groupID string) (*client.Group, error) {
	if f.err != nil {
		return nil, f.err
	}
	name, ok := f.groups[groupID]
	if !ok {
		return nil, assert.AnError
	}
	return &client.Group{ID: groupID, Name: name}, nil
}

func strp(s string) *string { return &s }

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "disabled"})
}

// threeLevelChain builds a Submit level plus two approval levels, the top one
// terminal.
func threeLevelChain() []*repository.ApprovalLevel {
	return []*repository.ApprovalLevel{
		{
			Level:              1,
			Operation:          strp(repository.OperationSubmit),
			SupervisoryGroupID: strp("g-checkers"),
			InitGroupID:        strp("g-makers"),
		},
		{
			Level:           2,
			ApprovedGroupID: strp("g-managers"),
			RevertedGroupID: strp("g-makers"),
		},
		{
			Level:           3,
			RevertedGroupID: strp("g-checkers"),
		},
	}
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{groups: map[string]string{
		"g-makers":   "MAKERS",
		"g-checkers": "CHECKERS",
		"g-managers": "MANAGERS",
	}}
}

func TestResolveSubmit(t *testing.T) {
	r := NewTransitionResolver(testDirectory(), testLogger())

	outcome, err := r.Resolve(context.Background(), threeLevelChain(), false, ActionSubmit, nil)
	require.NoError(t, err)

	assert.Equal(t, RuleSubmit, outcome.Rule)
	assert.Equal(t, 1, outcome.Level)
	require.NotNil(t, outcome.Status)
	assert.Equal(t, "REQUEST_IS_AT_CHECKERS", *outcome.Status)
}

func TestResolveSubmitBlockedWhenStatusPresent(t *testing.T) {
	r := NewTransitionResolver(testDirectory(), testLogger())
	prior := &repository.ExecutionRecord{CurrentLevel: 1, CurrentStatus: strp("REQUEST_IS_AT_CHECKERS")}

	outcome, err := r.Resolve(context.Background(), threeLevelChain(), true, ActionSubmit, prior)
	require.NoError(t, err)

	assert.Equal(t, RuleNone, outcome.Rule)
	assert.Equal(t, prior.CurrentStatus, outcome.Status)
	assert.Equal(t, 1, outcome.Level)
}

func TestResolveApproveAdvancesOneLevel(t *testing.T) {
	r := NewTransitionResolver(testDirectory(), testLogger())
	prior := &repository.ExecutionRecord{CurrentLevel: 1, CurrentStatus: strp("REQUEST_IS_AT_CHECKERS")}

	outcome, err := r.Resolve(context.Background(), threeLevelChain(), true, ActionApprove, prior)
	require.NoError(t, err)

	assert.Equal(t, RuleApprove, outcome.Rule)
	assert.Equal(t, 2, outcome.Level)
	require.NotNil(t, outcome.Status)
	assert.Equal(t, "REQUEST_IS_AT_MANAGERS", *outcome.Status)
}

func TestResolveApproveTerminal(t *testing.T) {
	r := NewTransitionResolver(testDirectory(), testLogger())
	prior := &repository.ExecutionRecord{CurrentLevel: 2, CurrentStatus: strp("REQUEST_IS_AT_MANAGERS")}

	outcome, err := r.Resolve(context.Background(), threeLevelChain(), true, ActionApprove, prior)
	require.NoError(t, err)

	assert.Equal(t, RuleApprove, outcome.Rule)
	assert.Equal(t, 3, outcome.Level)
	require.NotNil(t, outcome.Status)
	assert.Equal(t, StatusActivated, *outcome.Status)
}

func TestResolveRevertToOrigin(t *testing.T) {
	r := NewTransitionResolver(testDirectory(), testLogger())
	prior := &repository.ExecutionRecord{CurrentLevel: 1, CurrentStatus: strp("REQUEST_IS_AT_CHECKERS")}

	outcome, err := r.Resolve(context.Background(), threeLevelChain(), true, ActionRevert, prior)
	require.NoError(t, err)

	assert.Equal(t, RuleRevert, outcome.Rule)
	assert.Equal(t, 0, outcome.Level)
	assert.Nil(t, outcome.Status)
}

func TestResolveRevertToSupervisoryGroup(t *testing.T) {
	r := NewTransitionResolver(testDirectory(), testLogger())
	prior := &repository.ExecutionRecord{CurrentLevel: 2, CurrentStatus: strp("REQUEST_IS_AT_MANAGERS")}

	outcome, err := r.Resolve(context.Background(), threeLevelChain(), true, ActionRevert, prior)
	require.NoError(t, err)

	assert.Equal(t, RuleRevert, outcome.Rule)
	assert.Equal(t, 1, outcome.Level)
	require.NotNil(t, outcome.Status)
	assert.Equal(t, "REQUEST_IS_AT_CHECKERS", *outcome.Status)
}

func TestResolveRevertGroupOutsideHierarchy(t *testing.T) {
	levels := threeLevelChain()
	levels[2].RevertedGroupID = strp("g-auditors")

	dir := testDirectory()
	dir.groups["g-auditors"] = "AUDITORS"

	r := NewTransitionResolver(dir, testLogger())
	prior := &repository.ExecutionRecord{CurrentLevel: 2, CurrentStatus: strp("REQUEST_IS_AT_MANAGERS")}

	outcome, err := r.Resolve(context.Background(), levels, true, ActionRevert, prior)
	require.NoError(t, err)

	assert.Equal(t, RuleNone, outcome.Rule)
	assert.Equal(t, prior.CurrentStatus, outcome.Status)
	assert.Equal(t, 2, outcome.Level)
}

func TestResolveGroupLookupFailureAborts(t *testing.T) {
	r := NewTransitionResolver(&fakeDirectory{err: assert.AnError}, testLogger())

	_, err := r.Resolve(context.Background(), threeLevelChain(), false, ActionSubmit, nil)
	assert.Error(t, err)
}

func TestResolveApproveWithoutLedgerRowIsNoOp(t *testing.T) {
	r := NewTransitionResolver(testDirectory(), testLogger())

	// Status present on the document but no ledger row: the candidate level
	// is unresolvable, so nothing fires.
	outcome, err := r.Resolve(context.Background(), threeLevelChain(), true, ActionApprove, nil)
	require.NoError(t, err)

	assert.Equal(t, RuleNone, outcome.Rule)
	assert.Nil(t, outcome.Status)
	assert.Equal(t, 0, outcome.Level)
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{in: "", want: ActionSubmit},
		{in: "SUBMITTED", want: ActionSubmit},
		{in: "APPROVED", want: ActionApprove},
		{in: "REVERTED", want: ActionRevert},
		{in: "approved", wantErr: true},
		{in: "REJECTED", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseAction(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
