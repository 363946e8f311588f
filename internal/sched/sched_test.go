package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusk-dev/tusk/internal/lifecycle"
	"github.com/tusk-dev/tusk/internal/store"
	"github.com/tusk-dev/tusk/internal/workspace"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	ws, err := workspace.Init(t.TempDir())
	require.NoError(t, err)
	st, err := store.Open(ws)
	require.NoError(t, err)
	return st
}

func engine(st *store.Store, actorID string) *lifecycle.Engine {
	return &lifecycle.Engine{Store: st, Actor: actorID}
}

func complete(t *testing.T, st *store.Store, taskID string) {
	t.Helper()
	e := engine(st, "tester")
	_, err := e.Start(taskID, true, "")
	require.NoError(t, err)
	_, err = e.Done(taskID, "done", store.Evidence{}, false)
	require.NoError(t, err)
}

func TestReady_PartitionWithDependencyChain(t *testing.T) {
	st := newStore(t)
	_, err := st.CreateEpic("Auth", "")
	require.NoError(t, err)
	_, err = st.CreateTask("E-1", "base", nil, "", nil)
	require.NoError(t, err)
	_, err = st.CreateTask("E-1", "middle", []string{"E-1.1"}, "", nil)
	require.NoError(t, err)
	_, err = st.CreateTask("E-1", "top", []string{"E-1.2"}, "", nil)
	require.NoError(t, err)

	complete(t, st, "E-1.1")

	report, err := Ready(st, "E-1")
	require.NoError(t, err)

	require.Len(t, report.Ready, 1)
	assert.Equal(t, "E-1.2", report.Ready[0].ID)
	assert.Empty(t, report.InProgress)
	require.Len(t, report.Blocked, 1)
	assert.Equal(t, "E-1.3", report.Blocked[0].ID)
	assert.Equal(t, []string{"E-1.2"}, report.Blocked[0].BlockedBy)
}

func TestReady_PriorityOrdering(t *testing.T) {
	st := newStore(t)
	_, err := st.CreateEpic("Auth", "")
	require.NoError(t, err)

	low, high := 5, 1
	_, err = st.CreateTask("E-1", "no priority", nil, "", nil)
	require.NoError(t, err)
	_, err = st.CreateTask("E-1", "low", nil, "", &low)
	require.NoError(t, err)
	_, err = st.CreateTask("E-1", "high", nil, "", &high)
	require.NoError(t, err)

	report, err := Ready(st, "E-1")
	require.NoError(t, err)
	require.Len(t, report.Ready, 3)
	assert.Equal(t, "E-1.3", report.Ready[0].ID, "priority 1 first")
	assert.Equal(t, "E-1.2", report.Ready[1].ID, "priority 5 second")
	assert.Equal(t, "E-1.1", report.Ready[2].ID, "nil priority ranks 999, last")
}

func TestReady_ExplicitBlockAndMissingDep(t *testing.T) {
	st := newStore(t)
	_, err := st.CreateEpic("Auth", "")
	require.NoError(t, err)
	_, err = st.CreateTask("E-1", "a", nil, "", nil)
	require.NoError(t, err)

	e := engine(st, "tester")
	_, err = e.Start("E-1.1", false, "")
	require.NoError(t, err)
	_, err = e.Block("E-1.1", "vendor outage")
	require.NoError(t, err)

	report, err := Ready(st, "E-1")
	require.NoError(t, err)
	require.Len(t, report.Blocked, 1)
	assert.Equal(t, store.StatusBlocked, report.Blocked[0].Status)
}

func TestNext_PlanResumeReadyAndNone(t *testing.T) {
	st := newStore(t)
	_, err := st.CreateEpic("Auth", "")
	require.NoError(t, err)
	_, err = st.CreateEpic("Billing", "")
	require.NoError(t, err)
	_, err = st.CreateTask("E-1", "schema", nil, "", nil)
	require.NoError(t, err)
	_, err = st.CreateTask("E-2", "invoices", nil, "", nil)
	require.NoError(t, err)

	// Plan review required and E-1 not shipped: plan unit for E-1.
	unit, err := Next(st, nil, true, "alice")
	require.NoError(t, err)
	assert.Equal(t, UnitPlan, unit.Kind)
	assert.Equal(t, "E-1", unit.Epic)

	_, err = st.SetPlanReviewStatus("E-1", store.ReviewShip)
	require.NoError(t, err)

	// Ready unit from the first epic with work.
	unit, err = Next(st, nil, true, "alice")
	require.NoError(t, err)
	assert.Equal(t, UnitReady, unit.Kind)
	require.NotNil(t, unit.Task)
	assert.Equal(t, "E-1.1", unit.Task.ID)

	// An in-progress claim by the caller wins over ready work.
	e := engine(st, "alice")
	_, err = e.Start("E-1.1", false, "")
	require.NoError(t, err)
	unit, err = Next(st, nil, false, "alice")
	require.NoError(t, err)
	assert.Equal(t, UnitResume, unit.Kind)
	assert.Equal(t, "E-1.1", unit.Task.ID)

	// Another actor does not resume alice's claim; it falls through to E-2.
	unit, err = Next(st, nil, false, "bob")
	require.NoError(t, err)
	assert.Equal(t, UnitReady, unit.Kind)
	assert.Equal(t, "E-2.1", unit.Task.ID)

	// Everything done: none.
	_, err = e.Done("E-1.1", "done", store.Evidence{}, false)
	require.NoError(t, err)
	complete(t, st, "E-2.1")
	unit, err = Next(st, nil, false, "alice")
	require.NoError(t, err)
	assert.Equal(t, UnitNone, unit.Kind)
}

func TestNext_EpicLevelDependencyBlocks(t *testing.T) {
	st := newStore(t)
	_, err := st.CreateEpic("Auth", "")
	require.NoError(t, err)
	_, err = st.CreateEpic("Billing", "")
	require.NoError(t, err)
	_, err = st.CreateTask("E-2", "invoices", nil, "", nil)
	require.NoError(t, err)

	// E-2 depends on E-1, which is open (and has no work of its own).
	epic, err := st.GetEpic("E-2")
	require.NoError(t, err)
	epic.DependsOnEpics = []string{"E-1"}
	require.NoError(t, st.SaveEpic(epic))

	unit, err := Next(st, nil, false, "alice")
	require.NoError(t, err)
	assert.Equal(t, UnitNone, unit.Kind)
	require.Len(t, unit.BlockedEpics, 1)
	assert.Equal(t, "E-2", unit.BlockedEpics[0].Epic)
	assert.Equal(t, []string{"E-1"}, unit.BlockedEpics[0].BlockedBy)

	// Closing E-1 unblocks E-2.
	_, _, err = engine(st, "alice").CloseEpic("E-1")
	require.NoError(t, err)
	unit, err = Next(st, nil, false, "alice")
	require.NoError(t, err)
	assert.Equal(t, UnitReady, unit.Kind)
	assert.Equal(t, "E-2.1", unit.Task.ID)
}

func TestNext_HonorsCallerOrdering(t *testing.T) {
	st := newStore(t)
	_, err := st.CreateEpic("Auth", "")
	require.NoError(t, err)
	_, err = st.CreateEpic("Billing", "")
	require.NoError(t, err)
	_, err = st.CreateTask("E-1", "a", nil, "", nil)
	require.NoError(t, err)
	_, err = st.CreateTask("E-2", "b", nil, "", nil)
	require.NoError(t, err)

	unit, err := Next(st, []string{"E-2", "E-1"}, false, "alice")
	require.NoError(t, err)
	assert.Equal(t, "E-2.1", unit.Task.ID)
}
