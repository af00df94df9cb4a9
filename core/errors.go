package core

import (
	"fmt"
	"strings"
)

// nearMissError describes malformed compile summary lines for a warning.
type nearMissError struct {
	count    int
	examples []string
}

func (e *nearMissError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d lines", e.count)
	for _, ex := range e.examples {
		fmt.Fprintf(&b, "\n  %s", ex)
	}
	return b.String()
}
