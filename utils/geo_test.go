package utils

import (
	"math"
	"testing"
)

func TestHaversineKM(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		expected               float64
		tolerance              float64
	}{
		{"same point", 12.9716, 77.5946, 12.9716, 77.5946, 0, 0.001},
		{"central bengaluru offset", 12.9716, 77.5946, 12.9816, 77.6046, 1.56, 0.05},
		{"bengaluru to chikkaballapur", 12.9716, 77.5946, 13.3, 77.9, 49.5, 1.0},
		{"london to paris", 51.5074, -0.1278, 48.8566, 2.3522, 343.5, 2.0},
		{"across the date line", 0, 179.5, 0, -179.5, 111.2, 1.0},
	}
	for _, tc := range cases {
		got := HaversineKM(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
		if math.Abs(got-tc.expected) > tc.tolerance {
			t.Fatalf("%s: expected ~%.2f km, got %.3f km", tc.name, tc.expected, got)
		}
	}
}

func TestHaversineKMSymmetric(t *testing.T) {
	a := HaversineKM(12.9716, 77.5946, 13.3, 77.9)
	b := HaversineKM(13.3, 77.9, 12.9716, 77.5946)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("distance not symmetric: %v vs %v", a, b)
	}
}
