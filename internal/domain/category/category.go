// Package category models the user's two-level category hierarchy.
//
// Categories are stored flat with an optional parent reference. At the point
// where analytics consume them they are rebuilt as a Tree of Main and Sub nodes,
// which makes "at most two levels" a property of the types.
package category

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultColor is used when a main category is created without one.
const DefaultColor = "#9ca3af"

var (
	ErrNotFound       = errors.New("category not found")
	ErrSystemCategory = errors.New("system categories cannot be deleted")
	ErrInvalidParent  = errors.New("a subcategory cannot be used as a parent")
	ErrDangling       = errors.New("category parent does not exist")
	ErrNameRequired   = errors.New("category name is required")
)

// Category is the flat record as read from the store.
type Category struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	Name         string     `json:"name"`
	Color        string     `json:"color"`
	Icon         string     `json:"icon"`
	IsSystem     bool       `json:"is_system"`
	DisplayOrder int        `json:"display_order"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Node is either a *Main or a *Sub.
type Node interface {
	Record() Category
	node()
}

// Main is a top-level category.
type Main struct {
	Category
	Children []*Sub
}

// Sub is a category whose parent is a Main.
type Sub struct {
	Category
	Parent *Main
}

func (m *Main) Record() Category { return m.Category }
func (s *Sub) Record() Category  { return s.Category }

func (*Main) node() {}
func (*Sub) node()  {}

// NewSubcategory builds a subcategory record under parent. The parent's color is
// copied now and not kept in sync afterward.
func NewSubcategory(parent *Main, name, icon string) Category {
	parentID := parent.ID
	return Category{
		ID:       uuid.New(),
		UserID:   parent.UserID,
		ParentID: &parentID,
		Name:     name,
		Color:    parent.Color,
		Icon:     icon,
	}
}

// Tree indexes a user's categories by id.
type Tree struct {
	mains []*Main
	index map[uuid.UUID]Node
}

// BuildTree assembles the hierarchy. Records nested deeper than two levels or
// pointing at a missing parent are left out of the tree and reported.
func BuildTree(records []Category) (*Tree, []error) {
	byID := make(map[uuid.UUID]Category, len(records))
	for _, c := range records {
		byID[c.ID] = c
	}

	t := &Tree{index: make(map[uuid.UUID]Node, len(records))}
	for _, c := range records {
		if c.ParentID == nil {
			m := &Main{Category: c}
			t.mains = append(t.mains, m)
			t.index[c.ID] = m
		}
	}

	var problems []error
	for _, c := range records {
		if c.ParentID == nil {
			continue
		}
		parent, ok := t.index[*c.ParentID].(*Main)
		if !ok {
			if _, exists := byID[*c.ParentID]; exists {
				problems = append(problems, fmt.Errorf("category %s (%s): %w", c.ID, c.Name, ErrInvalidParent))
			} else {
				problems = append(problems, fmt.Errorf("category %s (%s): %w", c.ID, c.Name, ErrDangling))
			}
			continue
		}
		s := &Sub{Category: c, Parent: parent}
		parent.Children = append(parent.Children, s)
		t.index[c.ID] = s
	}

	sortByOrder(t.mains, func(m *Main) Category { return m.Category })
	for _, m := range t.mains {
		sortByOrder(m.Children, func(s *Sub) Category { return s.Category })
	}
	return t, problems
}

func sortByOrder[T any](items []T, rec func(T) Category) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := rec(items[i]), rec(items[j])
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.Name < b.Name
	})
}

// Lookup returns the node for id.
func (t *Tree) Lookup(id uuid.UUID) (Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.index[id]
	return n, ok
}

// RollUp returns the main category a transaction posted to id is reported under.
func (t *Tree) RollUp(id uuid.UUID) (*Main, bool) {
	n, ok := t.Lookup(id)
	if !ok {
		return nil, false
	}
	switch v := n.(type) {
	case *Main:
		return v, true
	case *Sub:
		return v.Parent, true
	}
	return nil, false
}

// Main returns the main category with id, if id names one.
func (t *Tree) Main(id uuid.UUID) (*Main, bool) {
	n, ok := t.Lookup(id)
	if !ok {
		return nil, false
	}
	m, ok := n.(*Main)
	return m, ok
}

// Mains returns top-level categories ordered by display order then name.
func (t *Tree) Mains() []*Main {
	if t == nil {
		return nil
	}
	return t.mains
}

// Len returns the number of categories in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.index)
}
