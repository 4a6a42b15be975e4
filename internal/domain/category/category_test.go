package category

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(id uuid.UUID) *uuid.UUID { return &id }

func TestBuildTree(t *testing.T) {
	food := Category{ID: uuid.New(), Name: "Food", Color: "#ff0000", DisplayOrder: 2}
	home := Category{ID: uuid.New(), Name: "Home", Color: "#00ff00", DisplayOrder: 1}
	groceries := Category{ID: uuid.New(), Name: "Groceries", ParentID: ref(food.ID)}
	bars := Category{ID: uuid.New(), Name: "Bars", ParentID: ref(food.ID)}
	tooDeep := Category{ID: uuid.New(), Name: "Craft beer", ParentID: ref(bars.ID)}
	orphan := Category{ID: uuid.New(), Name: "Orphan", ParentID: ref(uuid.New())}

	tree, problems := BuildTree([]Category{groceries, food, orphan, bars, home, tooDeep})

	require.Len(t, problems, 2)
	assert.ErrorIs(t, problems[0], ErrDangling)
	assert.ErrorIs(t, problems[1], ErrInvalidParent)

	mains := tree.Mains()
	require.Len(t, mains, 2)
	assert.Equal(t, "Home", mains[0].Name, "display order first")
	assert.Equal(t, "Food", mains[1].Name)

	require.Len(t, mains[1].Children, 2)
	assert.Equal(t, "Bars", mains[1].Children[0].Name, "children sorted by name at equal order")
	assert.Equal(t, 4, tree.Len())

	t.Run("roll up sub to parent", func(t *testing.T) {
		m, ok := tree.RollUp(groceries.ID)
		require.True(t, ok)
		assert.Equal(t, food.ID, m.ID)
	})

	t.Run("roll up main to itself", func(t *testing.T) {
		m, ok := tree.RollUp(home.ID)
		require.True(t, ok)
		assert.Equal(t, home.ID, m.ID)
	})

	t.Run("excluded records do not resolve", func(t *testing.T) {
		_, ok := tree.RollUp(tooDeep.ID)
		assert.False(t, ok)
		_, ok = tree.Lookup(orphan.ID)
		assert.False(t, ok)
	})

	t.Run("lookup returns typed nodes", func(t *testing.T) {
		n, ok := tree.Lookup(groceries.ID)
		require.True(t, ok)
		sub, isSub := n.(*Sub)
		require.True(t, isSub)
		assert.Equal(t, food.ID, sub.Parent.ID)
		assert.Equal(t, "Groceries", n.Record().Name)

		_, ok = tree.Main(groceries.ID)
		assert.False(t, ok)
	})
}

func TestNilTree(t *testing.T) {
	var tree *Tree
	_, ok := tree.RollUp(uuid.New())
	assert.False(t, ok)
	assert.Empty(t, tree.Mains())
	assert.Zero(t, tree.Len())
}

func TestNewSubcategory_InheritsColor(t *testing.T) {
	parent := &Main{Category: Category{ID: uuid.New(), UserID: uuid.New(), Color: "#123456"}}

	sub := NewSubcategory(parent, "Coffee", "cup")

	assert.Equal(t, "#123456", sub.Color)
	require.NotNil(t, sub.ParentID)
	assert.Equal(t, parent.ID, *sub.ParentID)
	assert.Equal(t, parent.UserID, sub.UserID)
	assert.NotEqual(t, uuid.Nil, sub.ID)

	parent.Color = "#000000"
	assert.Equal(t, "#123456", sub.Color, "not kept in sync")
}
