package intervalz

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestItem_Validate(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want error
	}{
		{"valid", Item{Key: "car", Delay: time.Second}, nil},
		{"zero delay", Item{Key: "car"}, nil},
		{"negative delay", Item{Key: "car", Delay: -time.Millisecond}, ErrNegativeDelay},
		{"empty key", Item{Delay: time.Second}, ErrEmptyKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.item.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateItems(t *testing.T) {
	items := []Item{
		{Key: "car", Delay: ms(10)},
		{Key: "", Delay: ms(20)},
		{Key: "bike", Delay: -ms(1)},
	}

	err := ValidateItems(items)

	var itemErr *ItemError
	if !errors.As(err, &itemErr) {
		t.Fatalf("expected an *ItemError, got %v", err)
	}
	if itemErr.Index != 1 {
		t.Errorf("expected the first violation at index 1, got %d", itemErr.Index)
	}
	if !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
}

func TestValidateItems_Valid(t *testing.T) {
	if err := ValidateItems([]Item{{Key: "car"}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateItems(nil); err != nil {
		t.Errorf("unexpected error for an empty list: %v", err)
	}
}

func TestItemError_Error(t *testing.T) {
	err := newItemError(2, Item{Key: "car", Delay: -ms(5)}, ErrNegativeDelay)

	msg := err.Error()
	for _, want := range []string{"item 2", `"car"`, "-5ms", ErrNegativeDelay.Error()} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}
