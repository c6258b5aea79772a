package fleet

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/metrorail/fleet-console/upstream"
)

// API is the slice of the upstream client the aggregation views need.
type API interface {
	FitnessCertificates(ctx context.Context) ([]upstream.FitnessCertificate, error)
	BrandingContracts(ctx context.Context) ([]upstream.BrandingContract, error)
	Mileage(ctx context.Context) ([]upstream.MileageRecord, error)
	JobCards(ctx context.Context) ([]upstream.JobCard, error)
	Predictions(ctx context.Context) (upstream.InductionPlan, error)
}

// Service aggregates upstream data for the rendered views. Fetch failures
// never propagate: each failing source degrades to an empty collection so
// the page always renders.
type Service struct {
	api API
	log zerolog.Logger
}

// NewService creates a view aggregation service over the given API.
func NewService(api API) *Service {
	return &Service{
		api: api,
		log: log.With().Str("component", "fleet").Logger(),
	}
}

// DashboardData is the aggregate for the dashboard page. The three
// collections are fetched and fail independently; no correlation between
// them is attempted.
type DashboardData struct {
	FitnessCertificates []upstream.FitnessCertificate
	Branding            []upstream.BrandingContract
	Mileage             []upstream.MileageRecord
}

// Dashboard issues the three dashboard fetches concurrently and joins on
// all of them. A failing source is logged and replaced with an empty
// collection; a single failure must not take down the page, so this is a
// wait-for-all join, never a fail-fast one.
func (s *Service) Dashboard(ctx context.Context) DashboardData {
	var data DashboardData
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		data.FitnessCertificates = s.fitnessCertificates(ctx)
	}()
	go func() {
		defer wg.Done()
		data.Branding = s.brandingContracts(ctx)
	}()
	go func() {
		defer wg.Done()
		data.Mileage = s.mileage(ctx)
	}()
	wg.Wait()

	return data
}

// JobCards fetches the maintenance job cards, or an empty collection on
// failure.
func (s *Service) JobCards(ctx context.Context) []upstream.JobCard {
	cards, err := s.api.JobCards(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("job cards fetch failed")
		return []upstream.JobCard{}
	}
	return cards
}

// InductionPlan fetches a fresh induction plan, or an empty plan on
// failure.
func (s *Service) InductionPlan(ctx context.Context) upstream.InductionPlan {
	plan, err := s.api.Predictions(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("predictions fetch failed")
		return upstream.InductionPlan{}
	}
	return plan
}

// FitnessCertificates fetches the fitness certificates, or an empty
// collection on failure.
func (s *Service) FitnessCertificates(ctx context.Context) []upstream.FitnessCertificate {
	return s.fitnessCertificates(ctx)
}

func (s *Service) fitnessCertificates(ctx context.Context) []upstream.FitnessCertificate {
	certs, err := s.api.FitnessCertificates(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("fitness certificates fetch failed")
		return []upstream.FitnessCertificate{}
	}
	if certs == nil {
		certs = []upstream.FitnessCertificate{}
	}
	return certs
}

func (s *Service) brandingContracts(ctx context.Context) []upstream.BrandingContract {
	contracts, err := s.api.BrandingContracts(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("branding fetch failed")
		return []upstream.BrandingContract{}
	}
	if contracts == nil {
		contracts = []upstream.BrandingContract{}
	}
	return contracts
}

func (s *Service) mileage(ctx context.Context) []upstream.MileageRecord {
	records, err := s.api.Mileage(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("mileage fetch failed")
		return []upstream.MileageRecord{}
	}
	if records == nil {
		records = []upstream.MileageRecord{}
	}
	return records
}
