// Package app ties discovery, ranking and activation together behind the
// operations the command line exposes.
package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"pysel/internal/activation"
	"pysel/internal/distribution"
	"pysel/internal/logx"
)

// Discoverer finds installed distributions.
type Discoverer interface {
	Discover(ctx context.Context) []distribution.Distribution
}

// Activator switches the environment. *activation.Manager implements it.
type Activator interface {
	Activate(ctx context.Context, d distribution.Distribution, opts activation.Options) error
	Deactivate(ctx context.Context) error
}

// Chooser picks one of several ranked matches. It is only consulted when
// more than one distribution matches.
type Chooser func(ctx context.Context, ranked []distribution.Distribution) (distribution.Distribution, error)

// NoMatchError is returned when a filter selects nothing.
type NoMatchError struct {
	Filter distribution.Filter
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no installed Python distribution matches %s", e.Filter)
}

// Selection is the chosen distribution plus how many matched.
type Selection struct {
	Distribution distribution.Distribution
	Matches      int
}

// Ambiguous reports whether more than one distribution matched.
func (s Selection) Ambiguous() bool { return s.Matches > 1 }

// Service runs the user-facing operations.
type Service struct {
	Discoverer Discoverer
	Activator  Activator
	// Chooser, when set, replaces the first-ranked pick for ambiguous
	// selections.
	Chooser Chooser
	Logger  *log.Logger
}

// List discovers and ranks distributions matching f.
func (s *Service) List(ctx context.Context, f distribution.Filter) ([]distribution.Distribution, error) {
	found := s.Discoverer.Discover(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ranked := distribution.Rank(found, f)
	logx.OrDiscard(s.Logger).Debug("listed", "filter", f.String(), "found", len(found), "matched", len(ranked))
	return ranked, nil
}

// Select returns the best match for f.
func (s *Service) Select(ctx context.Context, f distribution.Filter) (Selection, error) {
	ranked, err := s.List(ctx, f)
	if err != nil {
		return Selection{}, err
	}
	if len(ranked) == 0 {
		return Selection{}, &NoMatchError{Filter: f}
	}
	sel := Selection{Distribution: ranked[0], Matches: len(ranked)}
	if sel.Ambiguous() && s.Chooser != nil {
		chosen, err := s.Chooser(ctx, ranked)
		if err != nil {
			return Selection{}, fmt.Errorf("choose distribution: %w", err)
		}
		sel.Distribution = chosen
	}
	return sel, nil
}

// Activate selects the best match for f and activates it. Nothing is
// changed when selection fails.
func (s *Service) Activate(ctx context.Context, f distribution.Filter, opts activation.Options) (Selection, error) {
	sel, err := s.Select(ctx, f)
	if err != nil {
		return Selection{}, err
	}
	if sel.Ambiguous() {
		logx.OrDiscard(s.Logger).Info("multiple distributions match", "filter", f.String(), "matches", sel.Matches,
			"using", sel.Distribution.DisplayName())
	}
	if err := s.Activator.Activate(ctx, sel.Distribution, opts); err != nil {
		return Selection{}, fmt.Errorf("activate %s: %w", sel.Distribution.DisplayName(), err)
	}
	return sel, nil
}

// Deactivate restores the environment captured by the last activation.
func (s *Service) Deactivate(ctx context.Context) error {
	return s.Activator.Deactivate(ctx)
}
