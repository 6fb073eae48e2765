package cli

import (
	"flag"
	"fmt"
	"strings"
)

// Exclusive returns an error wrapping err when more than one of the named
// flags was set on fs.
func Exclusive(fs *flag.FlagSet, err error, names ...string) error {
	var set []string
	fs.Visit(func(f *flag.Flag) {
		for _, n := range names {
			if f.Name == n {
				set = append(set, "-"+n)
			}
		}
	})
	if len(set) > 1 {
		return fmt.Errorf("%w: flags %s are mutually exclusive", err, strings.Join(set, ", "))
	}
	return nil
}
