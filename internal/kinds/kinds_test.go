package kinds

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
)

func TestOf(t *testing.T) {
	for _, k := range all {
		wrapped := errors.Wrap(errors.Wrapf(k, "inner %d", 1), "outer")
		if got := Of(wrapped); got != k {
			t.Errorf("Of(%v) = %v, want %v", wrapped, got, k)
		}
		if got := Of(fmt.Errorf("std: %w", k)); got != k {
			t.Errorf("fmt wrapping of %v lost its kind", k)
		}
	}
	if Of(nil) != nil {
		t.Error("Of(nil) should be nil")
	}
	if Of(errors.New("plain")) != nil {
		t.Error("a plain error has no kind")
	}
}

func TestTransient(t *testing.T) {
	if !Transient(errors.Wrap(ErrBusy, "prove")) {
		t.Error("ErrBusy should be transient")
	}
	for _, k := range all {
		if k != ErrBusy && Transient(k) {
			t.Errorf("%v should not be transient", k)
		}
	}
}
