package ridehail

import (
	"context"
	"fmt"

	"github.com/UDynamic/urban-logistics-decision-support-system/models"
)

// setLocation drives the search-and-select interaction for one location
// field. It always picks the first search result: the catalog names are
// specific enough that disambiguation has not been needed, but this is
// an approximation, not a guaranteed match.
func (s *Scraper) setLocation(ctx context.Context, d Driver, loc models.Location, role Role) error {
	sel := s.selectors.ForRole(role)

	if err := d.Click(ctx, sel.Open); err != nil {
		return fmt.Errorf("%w: open %s search: %v", ErrLocationResolution, role, err)
	}

	// ClearAndType drops residual text a previous task may have left.
	if err := d.ClearAndType(ctx, sel.Input, loc.Name); err != nil {
		return fmt.Errorf("%w: type %s name %q: %v", ErrLocationResolution, role, loc.Name, err)
	}

	if err := d.WaitVisible(ctx, s.selectors.FirstResult); err != nil {
		return fmt.Errorf("%w: no results for %s %q: %v", ErrLocationResolution, role, loc.Name, err)
	}
	if err := d.Click(ctx, s.selectors.FirstResult); err != nil {
		return fmt.Errorf("%w: select result for %s %q: %v", ErrLocationResolution, role, loc.Name, err)
	}

	if err := d.Click(ctx, sel.Submit); err != nil {
		return fmt.Errorf("%w: confirm %s %q: %v", ErrLocationResolution, role, loc.Name, err)
	}

	return nil
}
