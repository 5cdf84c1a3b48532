package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChain(t *testing.T) (global, workflow, branchGroup, branch *Scope) {
	t.Helper()
	global = New(LevelGlobal, nil)
	workflow = New(LevelWorkflow, map[Level]*Scope{LevelGlobal: global})
	branchGroup = New(LevelBranchGroup, map[Level]*Scope{LevelGlobal: global, LevelWorkflow: workflow})
	branch = New(LevelBranch, map[Level]*Scope{LevelGlobal: global, LevelWorkflow: workflow, LevelBranchGroup: branchGroup})
	return
}

func TestScope_AddForwardsToCorrectLevel(t *testing.T) {
	global, workflow, _, branch := newChain(t)

	require.NoError(t, branch.Add(1, LevelGlobal, "g"))
	require.NoError(t, branch.Add(2, LevelWorkflow, "w"))

	_, ok := global.Get(1)
	assert.True(t, ok)
	_, ok = workflow.Get(2)
	assert.True(t, ok)

	// Cannot add at a level "below" the calling scope.
	err := branch.Add(3, LevelGlobal, "x")
	require.NoError(t, err) // global is above branch, allowed

	err = workflow.Add(4, LevelBranch, "y")
	assert.Error(t, err)
}

func TestScope_AddDuplicateRejected(t *testing.T) {
	global, _, _, _ := newChain(t)
	require.NoError(t, global.Add(1, LevelGlobal, "a"))
	assert.Error(t, global.Add(1, LevelGlobal, "b"))
}

func TestScope_FindWalksUpToMaxDepth(t *testing.T) {
	global, workflow, branchGroup, branch := newChain(t)
	require.NoError(t, global.Add(10, LevelGlobal, "from-global"))
	require.NoError(t, workflow.Add(20, LevelWorkflow, "from-workflow"))
	_ = branchGroup

	v, ok := branch.Find(20, 3)
	require.True(t, ok)
	assert.Equal(t, "from-workflow", v)

	// maxDepth 0 only looks at branch itself.
	_, ok = branch.Find(10, 0)
	assert.False(t, ok)

	v, ok = branch.Find(10, 3)
	require.True(t, ok)
	assert.Equal(t, "from-global", v)
}

func TestScope_RemoveRequiresZeroRefcount(t *testing.T) {
	global, _, _, _ := newChain(t)
	require.NoError(t, global.Add(1, LevelGlobal, "v"))

	_, ok := global.Get(1)
	require.True(t, ok)
	assert.EqualValues(t, 1, global.RefCount(1))

	err := global.Remove(1)
	require.Error(t, err)

	global.Release(1)
	assert.EqualValues(t, 0, global.RefCount(1))
	require.NoError(t, global.Remove(1))
}

func TestCache_RejectsBranchLevel(t *testing.T) {
	_, _, _, branch := newChain(t)
	require.NoError(t, branch.Add(1, LevelBranch, "v"))
	_, err := NewCache(branch, 1)
	assert.Error(t, err)
}

func TestCache_RefcountLifecycle(t *testing.T) {
	global, _, _, _ := newChain(t)
	require.NoError(t, global.Add(1, LevelGlobal, "v"))

	c, err := NewCache(global, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, global.RefCount(1))
	assert.Equal(t, "v", c.Value())

	c.Close()
	assert.EqualValues(t, 0, global.RefCount(1))
	c.Close() // idempotent
	assert.EqualValues(t, 0, global.RefCount(1))
}

func TestBinder_RebindUnbindsCleanly(t *testing.T) {
	var seen []any
	b := NewBinder(func(source any) { seen = append(seen, source) })

	b.Bind("a")
	b.Bind("b")
	b.Unbind()

	assert.Equal(t, []any{"a", nil, "b", nil}, seen)
}
