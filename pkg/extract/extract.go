/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package extract

/*****************************************************************************************************************/

// Star is a single detected star in an image: its pixel centroid, peak intensity,
// integrated flux, half-flux radius, and an ellipticity measure (1 = perfectly
// round, 0 = a line).
type Star struct {
	X           float64
	Y           float64
	Peak        float64
	Flux        float64
	HFR         float64
	Ellipticity float64
}

/*****************************************************************************************************************/

// Result is the full output of a single extraction pass: the detected stars plus the
// aggregate HFR statistics the Auto-Focus engine's CHECKING_STARS state consumes.
type Result struct {
	Stars     []Star
	MeanHFR   float64
	MedianHFR float64
}

/*****************************************************************************************************************/

// Extractor is the star-extraction contract: given an image file path, return the
// detected stars and aggregate HFR statistics.
type Extractor interface {
	Extract(imagePath string) (Result, error)
}

/*****************************************************************************************************************/

// Score implements the CHECKING_STARS star-scoring formula:
//
//	0.4·normalisedPeak + 0.3·hfrGoodness + 0.2·centrality + 0.1·shape
//
// normalisedPeak and centrality are supplied pre-normalised to [0,1] by the caller
// (the extractor knows the sensor dimensions and the population's peak range; this
// package only combines the four terms), hfrGoodness = 1/(1+HFR), shape = Ellipticity.
func Score(normalisedPeak, hfrGoodness, centrality, shape float64) float64 {
	return 0.4*normalisedPeak + 0.3*hfrGoodness + 0.2*centrality + 0.1*shape
}

/*****************************************************************************************************************/
