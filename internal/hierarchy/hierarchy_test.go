package hierarchy_test

import (
	"testing"

	"github.com/lockstep-rebase/lockstep-rebase/internal/git/gittest"
	"github.com/lockstep-rebase/lockstep-rebase/internal/hierarchy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_SingleRepo(t *testing.T) {
	repo := gittest.NewTempRepo(t)

	h, err := hierarchy.Discover(t.Context(), repo.RepoDir)
	require.NoError(t, err)

	assert.Equal(t, hierarchy.RepoId{AbsPath: repo.RepoDir, RelPath: ""}, h.Root)
	require.Len(t, h.Order, 1)
	assert.Equal(t, h.Root, h.Order[0])
}

func TestDiscover_NestedHierarchy(t *testing.T) {
	repos := gittest.NewTempHierarchy(t, gittest.HierarchyShape{
		Name: "root",
		Children: []gittest.HierarchyShape{
			{Name: "child", Path: "vendor/child", Children: []gittest.HierarchyShape{
				{Name: "grandchild", Path: "vendor/grandchild"},
			}},
		},
	})

	// Discover starting from the grandchild's own directory; it should walk
	// all the way up to root.
	h, err := hierarchy.Discover(t.Context(), repos["grandchild"].RepoDir)
	require.NoError(t, err)

	assert.Equal(t, repos["root"].RepoDir, h.Root.AbsPath)
	require.Len(t, h.Order, 3)

	// Post-order: deepest first, so grandchild and child precede root.
	rootIdx := indexOfRel(h.Order, "")
	childIdx := indexOfRel(h.Order, "vendor/child")
	grandchildIdx := indexOfRel(h.Order, "vendor/child/vendor/grandchild")
	require.GreaterOrEqual(t, rootIdx, 0)
	require.GreaterOrEqual(t, childIdx, 0)
	require.GreaterOrEqual(t, grandchildIdx, 0)
	assert.Less(t, grandchildIdx, childIdx)
	assert.Less(t, childIdx, rootIdx)

	childInfo, _ := h.Node("vendor/child")
	require.NotNil(t, childInfo)
	require.Len(t, childInfo.Submodules, 1)
	assert.Equal(t, "vendor/grandchild", childInfo.Submodules[0].PathInParent)
}

func TestHierarchy_Node_Ambiguous(t *testing.T) {
	repos := gittest.NewTempHierarchy(t, gittest.HierarchyShape{
		Name: "root",
		Children: []gittest.HierarchyShape{
			{Name: "a", Path: "services/shared"},
			{Name: "b", Path: "tools/shared"},
		},
	})

	h, err := hierarchy.Discover(t.Context(), repos["root"].RepoDir)
	require.NoError(t, err)

	info, matches := h.Node("shared")
	assert.Nil(t, info)
	assert.Len(t, matches, 2)
}

func indexOfRel(ids []hierarchy.RepoId, rel string) int {
	for i, id := range ids {
		if id.RelPath == rel {
			return i
		}
	}
	return -1
}
