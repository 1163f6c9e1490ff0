package workflow

import (
	"testing"

	"github.com/greenloop-dev/greenloop_backend/models"
)

func ptrFloat(v float64) *float64 { return &v }

func TestEligibleCandidates(t *testing.T) {
	// Report in central Bengaluru.
	reportLat, reportLng := 12.9816, 77.6046

	near := &models.User{ID: 1, ServiceLat: ptrFloat(12.9716), ServiceLng: ptrFloat(77.5946)}
	far := &models.User{ID: 2, ServiceLat: ptrFloat(13.3), ServiceLng: ptrFloat(77.9)}
	noCoords := &models.User{ID: 3}

	candidates := eligibleCandidates(reportLat, reportLng, []*models.User{far, near, noCoords}, 20)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 eligible candidate, got %d", len(candidates))
	}
	if candidates[0].Worker.ID != 1 {
		t.Fatalf("expected worker 1, got %d", candidates[0].Worker.ID)
	}
	if candidates[0].DistanceKm <= 0 || candidates[0].DistanceKm > 2 {
		t.Fatalf("implausible distance %.3f km for ~1.5 km offset", candidates[0].DistanceKm)
	}
}

func TestEligibleCandidatesSortsNearestFirst(t *testing.T) {
	lat, lng := 12.9816, 77.6046

	workers := []*models.User{
		{ID: 5, ServiceLat: ptrFloat(12.90), ServiceLng: ptrFloat(77.55)},
		{ID: 2, ServiceLat: ptrFloat(12.98), ServiceLng: ptrFloat(77.60)},
		{ID: 9, ServiceLat: ptrFloat(12.95), ServiceLng: ptrFloat(77.58)},
	}

	candidates := eligibleCandidates(lat, lng, workers, 20)
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i].DistanceKm < candidates[i-1].DistanceKm {
			t.Fatalf("candidates not sorted by distance: %.3f before %.3f",
				candidates[i-1].DistanceKm, candidates[i].DistanceKm)
		}
	}
	if candidates[0].Worker.ID != 2 {
		t.Fatalf("expected nearest worker 2 first, got %d", candidates[0].Worker.ID)
	}
}

func TestEligibleCandidatesTieBreaksOnWorkerId(t *testing.T) {
	lat, lng := 12.9816, 77.6046

	// Identical coordinates, identical distance; the earlier registration
	// (lower id) must win regardless of input order.
	a := &models.User{ID: 7, ServiceLat: ptrFloat(12.97), ServiceLng: ptrFloat(77.59)}
	b := &models.User{ID: 3, ServiceLat: ptrFloat(12.97), ServiceLng: ptrFloat(77.59)}

	candidates := eligibleCandidates(lat, lng, []*models.User{a, b}, 20)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Worker.ID != 3 {
		t.Fatalf("expected worker 3 to win the tie, got %d", candidates[0].Worker.ID)
	}
}

func TestEligibleCandidatesHonorsPerWorkerRadius(t *testing.T) {
	lat, lng := 12.9816, 77.6046

	// ~1.5 km away but with a 1 km personal radius: excluded.
	tight := &models.User{ID: 1, ServiceLat: ptrFloat(12.9716), ServiceLng: ptrFloat(77.5946), ServiceRadiusKm: ptrFloat(1)}
	// Same spot with a 5 km radius: included.
	wide := &models.User{ID: 2, ServiceLat: ptrFloat(12.9716), ServiceLng: ptrFloat(77.5946), ServiceRadiusKm: ptrFloat(5)}

	candidates := eligibleCandidates(lat, lng, []*models.User{tight, wide}, 20)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Worker.ID != 2 {
		t.Fatalf("expected worker 2, got %d", candidates[0].Worker.ID)
	}
}
