package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	pathFitnessCertificates = "/fitness_certificates/"
	pathBranding            = "/branding/"
	pathMileage             = "/mileage/"
	pathJobCards            = "/joboards/"
	pathPredictions         = "/getpredictions/"
)

// FitnessCertificate is the per-train clearance record issued by the
// signalling, rolling stock and telecom departments.
type FitnessCertificate struct {
	TrainID             string `json:"train_id"`
	Signal              bool   `json:"signal"`
	Braking             bool   `json:"braking"`
	StructuralIntegrity bool   `json:"structural_integrity"`
	ExpiryDate          string `json:"expiry_date"`
}

// BrandingContract is an advertiser wrap contract bound to a train.
type BrandingContract struct {
	ID           int    `json:"id"`
	TrainID      string `json:"train_id"`
	BrandingFirm string `json:"branding_firm"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Revenue      string `json:"revenue"`
	Impressions  string `json:"impressions"`
}

// MileageRecord is the cumulative mileage of a train.
type MileageRecord struct {
	TrainID string `json:"train_id"`
	Mileage int64  `json:"mileage"`
}

// JobCard is an open or closed maintenance work order.
type JobCard struct {
	ID        int    `json:"id"`
	Train     string `json:"train"`
	DateStart string `json:"date_start"`
	Status    string `json:"status"`
}

// Induction actions assigned to a train for the next service day.
const (
	ActionService     = "SERVICE"
	ActionStandby     = "STANDBY"
	ActionMaintenance = "MAINTENANCE"
)

// TrainAssignment is one train's slot in the induction plan.
type TrainAssignment struct {
	Train  string `json:"train"`
	Action string `json:"action"`
}

// InductionPlan is the full plan returned by the prediction endpoint.
type InductionPlan []TrainAssignment

// FitnessCertificates fetches all current fitness certificates.
func (c *Client) FitnessCertificates(ctx context.Context) ([]FitnessCertificate, error) {
	var certs []FitnessCertificate
	if err := c.getJSON(ctx, pathFitnessCertificates, &certs); err != nil {
		return nil, err
	}
	return certs, nil
}

// BrandingContracts fetches all branding contracts.
func (c *Client) BrandingContracts(ctx context.Context) ([]BrandingContract, error) {
	var contracts []BrandingContract
	if err := c.getJSON(ctx, pathBranding, &contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}

// Mileage fetches the per-train mileage records.
func (c *Client) Mileage(ctx context.Context) ([]MileageRecord, error) {
	var records []MileageRecord
	if err := c.getJSON(ctx, pathMileage, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// JobCards fetches all maintenance job cards.
func (c *Client) JobCards(ctx context.Context) ([]JobCard, error) {
	var cards []JobCard
	if err := c.getJSON(ctx, pathJobCards, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// Predictions requests a fresh induction plan. The endpoint expects a
// POST; the payload is an empty object, the optimizer reads its inputs
// server-side.
func (c *Client) Predictions(ctx context.Context) (InductionPlan, error) {
	resp, err := c.do(ctx, http.MethodPost, pathPredictions, map[string]string{}, "")
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, fmt.Errorf("POST %s: %w", pathPredictions, &StatusError{Status: resp.status, Body: resp.body})
	}

	var plan InductionPlan
	if err := json.Unmarshal(resp.body, &plan); err != nil {
		return nil, fmt.Errorf("decode predictions response: %w", err)
	}
	return plan, nil
}
