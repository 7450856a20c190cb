package notify

import (
	"errors"
	"testing"
)

func TestDisabledNotifierIsSafe(t *testing.T) {
	n, err := NewTelegramNotifier("", 0)
	if err != nil {
		t.Fatalf("NewTelegramNotifier failed: %v", err)
	}

	// Without credentials every alert is a no-op; none of these may panic.
	n.AlertGenerationFailure("recipe", errors.New("boom"))
	n.AlertTokenBloat("Recipe", "llama-3.3-70b-versatile", 90000)
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	n.AlertGenerationFailure("recipe", errors.New("boom"))
	n.AlertTokenBloat("Recipe", "llama-3.3-70b-versatile", 90000)
}
