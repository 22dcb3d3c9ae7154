/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package platesolve

/*****************************************************************************************************************/

import (
	"testing"

	"github.com/observerly/skyguide/pkg/solve"
)

/*****************************************************************************************************************/

type countingSolver struct {
	calls  int
	record solve.Record
}

func (s *countingSolver) Solve(imagePath string, params solve.Params) (solve.Record, error) {
	s.calls++
	return s.record, nil
}

/*****************************************************************************************************************/

func TestCachingSolverOnlyCallsInnerOnce(t *testing.T) {
	inner := &countingSolver{record: solve.Record{RA: 10.5, Dec: 41.25, FieldWidthDeg: 1.2, FieldHeightDeg: 0.8}}

	cache, err := NewCachingSolver(inner, ":memory:")
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}

	params := solve.Params{Mode: solve.Blind}

	first, err := cache.Solve("frame.fits", params)
	if err != nil {
		t.Fatalf("unexpected error on first solve: %v", err)
	}

	second, err := cache.Solve("frame.fits", params)
	if err != nil {
		t.Fatalf("unexpected error on second solve: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("expected exactly one delegated solve, got %d", inner.calls)
	}

	if first != second {
		t.Errorf("expected cached solve to match the original result, got %+v vs %+v", first, second)
	}

	if second.RA != 10.5 || second.Dec != 41.25 {
		t.Errorf("unexpected cached RA/Dec: %v / %v", second.RA, second.Dec)
	}
}

/*****************************************************************************************************************/

func TestCachingSolverKeysOnModeSeparately(t *testing.T) {
	inner := &countingSolver{record: solve.Record{RA: 1, Dec: 2}}

	cache, err := NewCachingSolver(inner, ":memory:")
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}

	if _, err := cache.Solve("frame.fits", solve.Params{Mode: solve.Blind}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := cache.Solve("frame.fits", solve.Params{Mode: solve.FieldOfView}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.calls != 2 {
		t.Errorf("expected a separate delegated solve per mode, got %d calls", inner.calls)
	}
}

/*****************************************************************************************************************/
