package cfl

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadHeader returns the dimensions recorded in a header file.
func ReadHeader(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "# Dimensions" {
			continue
		}
		if !sc.Scan() {
			break
		}

		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			break
		}
		dims := make([]int, len(fields))
		for i, s := range fields {
			d, err := strconv.Atoi(s)
			if err != nil || d < 1 {
				return nil, fmt.Errorf("%w: dimension %q in %s", ErrFormat, s, path)
			}
			dims[i] = d
		}
		return dims, nil
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: no dimensions in %s", ErrFormat, path)
}

// WriteHeader writes a header file for dims.
func WriteHeader(path string, dims []int) error {
	var b strings.Builder
	b.WriteString("# Dimensions\n")
	for _, d := range dims {
		fmt.Fprintf(&b, "%d ", d)
	}
	b.WriteString("\n")
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
