package intervalz

import (
	"slices"
	"time"
)

// Reserved control keys.
const (
	KeyRemove = "remove"
	KeyClose  = "close"
	KeyReset  = "reset"
)

// Item is the atomic scheduled unit flowing through every pipeline.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Item struct {
	// Delay is the offset from stream start at which the item is emitted.
	Delay time.Duration `json:"delay"`

	// Key is the semantic tag of the item.
	Key string `json:"key"`

	// ID is assigned by the Engine as "{generation}_{position}".
	ID string `json:"id,omitempty"`

	// Color is assigned by the Engine from its palette.
	Color string `json:"color,omitempty"`

	// StreamIndex identifies the lane an item belongs to, when set.
	StreamIndex *int `json:"streamIndex,omitempty"`

	// Value is an opaque payload passed through untouched.
	Value any `json:"value,omitempty"`
}

// Validate reports whether the item honours the delay and key constraints.
func (it Item) Validate() error {
	if it.Delay < 0 {
		return ErrNegativeDelay
	}
	if it.Key == "" {
		return ErrEmptyKey
	}
	return nil
}

// Collection is the accumulated set of currently retained items,
// in insertion order.
type Collection struct {
	Items []Item `json:"items"`
}

// IDs returns the non-empty ids of the collection in order.
func (c Collection) IDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		if it.ID != "" {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// Len returns the number of retained items.
func (c Collection) Len() int {
	return len(c.Items)
}

func snapshot(items []Item) Collection {
	return Collection{Items: append(make([]Item, 0, len(items)), items...)}
}

// Emission is either a single Item or a group of Items emitted together.
type Emission struct {
	item  Item
	group []Item
	multi bool
}

// Single wraps one item.
func Single(item Item) Emission {
	return Emission{item: item}
}

// Group wraps items that are emitted, and later removed, as one unit.
func Group(items ...Item) Emission {
	return Emission{group: slices.Clone(items), multi: true}
}

// IsGroup reports whether the emission carries a group.
func (e Emission) IsGroup() bool {
	return e.multi
}

// Item returns the single item. It is the zero Item for groups.
func (e Emission) Item() Item {
	return e.item
}

// Items returns the members of the emission: the group, or the single item.
func (e Emission) Items() []Item {
	if e.multi {
		return slices.Clone(e.group)
	}
	return []Item{e.item}
}

// Delay returns the effective delay: the highest member delay for groups.
// An empty group has no delay and reports false.
func (e Emission) Delay() (time.Duration, bool) {
	if !e.multi {
		return e.item.Delay, true
	}
	if len(e.group) == 0 {
		return 0, false
	}
	higher := e.group[0].Delay
	for _, it := range e.group[1:] {
		higher = max(higher, it.Delay)
	}
	return higher, true
}

// Normalized returns the members with their delay overwritten to the
// effective delay of the emission.
func (e Emission) Normalized() []Item {
	items := e.Items()
	higher, ok := e.Delay()
	if !ok {
		return items
	}
	for i := range items {
		items[i].Delay = higher
	}
	return items
}
