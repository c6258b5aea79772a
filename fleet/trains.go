package fleet

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/metrorail/fleet-console/upstream"
)

// TrainsView is the aggregate for the fleet/trains page. Both collections
// are ordered by train identifier; Selected is the first train by that
// ordering, or "" when there is no mileage data.
type TrainsView struct {
	Mileage  []upstream.MileageRecord
	Branding []upstream.BrandingContract
	Selected string
}

// Trains fetches mileage and branding concurrently and orders both by
// train identifier using locale-aware comparison. Unlike the dashboard,
// this view does not degrade per source: if either fetch fails the page
// renders with empty collections and no selection, never with a partial
// ordering.
func (s *Service) Trains(ctx context.Context) TrainsView {
	var (
		wg          sync.WaitGroup
		mileage     []upstream.MileageRecord
		branding    []upstream.BrandingContract
		mileageErr  error
		brandingErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		mileage, mileageErr = s.api.Mileage(ctx)
	}()
	go func() {
		defer wg.Done()
		branding, brandingErr = s.api.BrandingContracts(ctx)
	}()
	wg.Wait()

	if mileageErr != nil || brandingErr != nil {
		if mileageErr != nil {
			s.log.Error().Err(mileageErr).Msg("mileage fetch failed")
		}
		if brandingErr != nil {
			s.log.Error().Err(brandingErr).Msg("branding fetch failed")
		}
		return TrainsView{
			Mileage:  []upstream.MileageRecord{},
			Branding: []upstream.BrandingContract{},
		}
	}
	if mileage == nil {
		mileage = []upstream.MileageRecord{}
	}
	if branding == nil {
		branding = []upstream.BrandingContract{}
	}

	// Collators are not safe for concurrent use, so each request gets its
	// own.
	coll := collate.New(language.English, collate.Loose)
	sort.SliceStable(mileage, func(i, j int) bool {
		return coll.CompareString(mileage[i].TrainID, mileage[j].TrainID) < 0
	})
	sort.SliceStable(branding, func(i, j int) bool {
		return coll.CompareString(branding[i].TrainID, branding[j].TrainID) < 0
	})

	view := TrainsView{Mileage: mileage, Branding: branding}
	if len(mileage) > 0 {
		view.Selected = mileage[0].TrainID
	}
	return view
}
