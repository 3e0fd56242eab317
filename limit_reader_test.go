// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLimitErrorReader(t *testing.T) {
	t.Run("exact limit is not an error", func(t *testing.T) {
		r := newLimitErrorReader(strings.NewReader("hello"), 5, ErrMaxInputSizeExceeded)
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("ReadAll() error: %s", err)
		}
		if string(got) != "hello" {
			t.Errorf("ReadAll() = %q, want %q", got, "hello")
		}
		if r.ReadBytes() != 5 {
			t.Errorf("ReadBytes() = %d, want 5", r.ReadBytes())
		}
	})

	t.Run("over the limit", func(t *testing.T) {
		r := newLimitErrorReader(strings.NewReader("hello!"), 5, ErrMaxInputSizeExceeded)
		_, err := io.ReadAll(r)
		if !errors.Is(err, ErrMaxInputSizeExceeded) {
			t.Fatalf("ReadAll() error = %v, want ErrMaxInputSizeExceeded", err)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		r := newLimitErrorReader(strings.NewReader("hello!"), -1, ErrMaxInputSizeExceeded)
		got, err := io.ReadAll(r)
		if err != nil || string(got) != "hello!" {
			t.Errorf("ReadAll() = %q (%v), want %q", got, err, "hello!")
		}
	})
}
