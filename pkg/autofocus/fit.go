/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package autofocus

/*****************************************************************************************************************/

import (
	"math"
	"sort"

	"github.com/observerly/skyguide/pkg/matrix"
)

/*****************************************************************************************************************/

// epsilon is the minimum curvature magnitude below which a parabolic fit is
// considered too flat to trust, triggering the interpolation fallback.
const epsilon = 1e-6

/*****************************************************************************************************************/

// Sample is a single focus measurement: the focuser position it was taken at and
// the mean HFR of the shots captured there.
type Sample struct {
	FocuserPosition int
	HFR             float64
	Measurements    []float64
}

/*****************************************************************************************************************/

// NewSample builds a Sample from a set of per-shot HFR measurements, with HFR set
// to their mean.
func NewSample(position int, measurements []float64) Sample {
	return Sample{
		FocuserPosition: position,
		HFR:             mean(measurements),
		Measurements:    measurements,
	}
}

/*****************************************************************************************************************/

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}

	sum := 0.0

	for _, x := range xs {
		sum += x
	}

	return sum / float64(len(xs))
}

/*****************************************************************************************************************/

// FitResult models HFR(x) = a·x² + b·x + c over a standardised x (position minus
// the minimum sampled position), with BestPosition = −b/(2a) translated back into
// real focuser-position units.
type FitResult struct {
	A, B, C      float64
	BestPosition float64
	MinHFR       float64
	RSquared     float64
	Valid        bool
}

/*****************************************************************************************************************/

// filterOutliers applies a Tukey IQR filter to the samples' HFR values, keeping all
// samples if the filter would leave fewer than three.
func filterOutliers(samples []Sample) []Sample {
	if len(samples) < 3 {
		return samples
	}

	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].HFR < sorted[j].HFR })

	q1 := percentile(sorted, 0.25)
	q3 := percentile(sorted, 0.75)
	iqr := q3 - q1

	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	kept := make([]Sample, 0, len(samples))

	for _, s := range samples {
		if s.HFR >= lower && s.HFR <= upper {
			kept = append(kept, s)
		}
	}

	if len(kept) < 3 {
		return samples
	}

	return kept
}

/*****************************************************************************************************************/

// percentile uses linear interpolation between closest ranks, sufficient for the
// small (N ≥ 5) sample sets the focus sweep produces.
func percentile(sorted []Sample, p float64) float64 {
	n := len(sorted)

	if n == 1 {
		return sorted[0].HFR
	}

	rank := p * float64(n-1)

	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))

	if lo == hi {
		return sorted[lo].HFR
	}

	frac := rank - float64(lo)

	return sorted[lo].HFR*(1-frac) + sorted[hi].HFR*frac
}

/*****************************************************************************************************************/

// Fit performs the FITTING_DATA stage: outlier filtering, a standardised quadratic
// least-squares fit solved by Gaussian elimination with partial pivoting, and the
// validity checks that decide whether to trust the parabola or fall back to the
// minimum-HFR sample.
func Fit(samples []Sample, minRSquared float64) (FitResult, error) {
	filtered := filterOutliers(samples)

	minX := math.MaxFloat64

	for _, s := range filtered {
		x := float64(s.FocuserPosition)
		if x < minX {
			minX = x
		}
	}

	n := len(filtered)

	// Build the normal-equation 3×3 system Aᵀ·A·β = Aᵀ·y for y = a·x² + b·x + c.
	sx, sx2, sx3, sx4 := 0.0, 0.0, 0.0, 0.0
	sy, sxy, sx2y := 0.0, 0.0, 0.0

	for _, s := range filtered {
		x := float64(s.FocuserPosition) - minX
		y := s.HFR

		x2 := x * x

		sx += x
		sx2 += x2
		sx3 += x2 * x
		sx4 += x2 * x2

		sy += y
		sxy += x * y
		sx2y += x2 * y
	}

	normal, err := matrix.NewFromSlice([]float64{
		sx4, sx3, sx2,
		sx3, sx2, sx,
		sx2, sx, float64(n),
	}, 3, 3)
	if err != nil {
		return FitResult{}, err
	}

	rhs := []float64{sx2y, sxy, sy}

	inverse, err := normal.Invert()
	if err != nil {
		// Singular normal matrix (degenerate x-spread); report as invalid rather
		// than failing outright, so the caller falls back to interpolation.
		return FitResult{Valid: false}, nil
	}

	coeffs := make([]float64, 3)

	for row := 0; row < 3; row++ {
		sum := 0.0
		for col := 0; col < 3; col++ {
			v, err := inverse.At(row, col)
			if err != nil {
				return FitResult{}, err
			}
			sum += v * rhs[col]
		}
		coeffs[row] = sum
	}

	a, b, c := coeffs[0], coeffs[1], coeffs[2]

	rSquared := rSquaredOf(filtered, minX, a, b, c)

	bestPositionStandardised := 0.0
	if math.Abs(a) > epsilon {
		bestPositionStandardised = -b / (2 * a)
	}

	bestPosition := bestPositionStandardised + minX

	minSampledX, maxSampledX := math.MaxFloat64, -math.MaxFloat64

	for _, s := range filtered {
		x := float64(s.FocuserPosition)
		if x < minSampledX {
			minSampledX = x
		}
		if x > maxSampledX {
			maxSampledX = x
		}
	}

	valid := a > epsilon && rSquared >= minRSquared && bestPosition >= minSampledX && bestPosition <= maxSampledX

	minHFR := a*bestPositionStandardised*bestPositionStandardised + b*bestPositionStandardised + c

	return FitResult{
		A:            a,
		B:            b,
		C:            c,
		BestPosition: bestPosition,
		MinHFR:       minHFR,
		RSquared:     rSquared,
		Valid:        valid,
	}, nil
}

/*****************************************************************************************************************/

func rSquaredOf(samples []Sample, minX, a, b, c float64) float64 {
	meanY := 0.0

	for _, s := range samples {
		meanY += s.HFR
	}

	meanY /= float64(len(samples))

	ssRes, ssTot := 0.0, 0.0

	for _, s := range samples {
		x := float64(s.FocuserPosition) - minX
		predicted := a*x*x + b*x + c

		ssRes += (s.HFR - predicted) * (s.HFR - predicted)
		ssTot += (s.HFR - meanY) * (s.HFR - meanY)
	}

	if ssTot == 0 {
		return 0
	}

	return 1 - ssRes/ssTot
}

/*****************************************************************************************************************/

// Interpolate implements the fallback path: the sample with the smallest HFR, used
// when the parabolic fit is rejected.
func Interpolate(samples []Sample) FitResult {
	best := samples[0]

	for _, s := range samples[1:] {
		if s.HFR < best.HFR {
			best = s
		}
	}

	return FitResult{
		BestPosition: float64(best.FocuserPosition),
		MinHFR:       best.HFR,
		Valid:        true,
	}
}

/*****************************************************************************************************************/
