package common

import (
	"math"
	"testing"
)

func TestFormatUnix(t *testing.T) {
	if got := FormatUnix(0); got != "1970-01-01T00:00:00Z" {
		t.Errorf("FormatUnix(0) = %q", got)
	}
	if got := FormatUnix(math.MaxInt64); got != "never" {
		t.Errorf("FormatUnix(MaxInt64) = %q", got)
	}
}

func TestBoxPrefix(t *testing.T) {
	if BoxPrefix(true) != "└  " || BoxPrefix(false) != "│  " {
		t.Error("unexpected box prefixes")
	}
}
