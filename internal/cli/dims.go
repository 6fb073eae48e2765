// Package cli holds small helpers shared by the command-line tools.
package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDims parses "x:y:z" (or a single "n" for n:n:n) into three positive
// sizes.
func ParseDims(s string) ([3]int, error) {
	var d [3]int
	parts := strings.Split(s, ":")
	if len(parts) == 1 {
		parts = []string{parts[0], parts[0], parts[0]}
	}
	if len(parts) != 3 {
		return d, fmt.Errorf("dimensions %q: want x:y:z", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 1 {
			return d, fmt.Errorf("dimensions %q: invalid size %q", s, p)
		}
		d[i] = n
	}
	return d, nil
}
