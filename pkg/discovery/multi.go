package discovery

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// MultiFinder runs several finders concurrently and merges their results.
// When two finders report the same location, the first finder wins.
type MultiFinder []Finder

var _ Finder = MultiFinder(nil)

// Discover implements Finder. It returns an error only when every finder
// failed.
func (m MultiFinder) Discover(ctx context.Context) ([]Advertisement, error) {
	found := make([][]Advertisement, len(m))
	errs := make([]error, len(m))

	var g errgroup.Group
	for i, f := range m {
		g.Go(func() error {
			found[i], errs[i] = f.Discover(ctx)
			return nil
		})
	}
	_ = g.Wait()

	var (
		out    []Advertisement
		seen   = make(map[string]bool)
		failed int
	)
	for i := range m {
		if errs[i] != nil {
			failed++
		}
		for _, adv := range found[i] {
			if seen[adv.Location] {
				continue
			}
			seen[adv.Location] = true
			out = append(out, adv)
		}
	}
	if len(m) > 0 && failed == len(m) {
		return out, errors.Join(errs...)
	}
	return out, nil
}
