/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package events

/*****************************************************************************************************************/

import "testing"

/*****************************************************************************************************************/

func TestNewPolarGuideDataCarriesRawOffsets(t *testing.T) {
	corner := [4]Corner{
		{RA: 10, Dec: 40},
		{RA: 10.1, Dec: 40},
		{RA: 10.1, Dec: 40.1},
		{RA: 10, Dec: 40.1},
	}

	data := NewPolarGuideData(
		10.05, 40.05,
		corner,
		10.0, 40.0,
		0.12, -0.34,
		10.0, 89.5,
		10.0, 90.0,
	)

	if data.OffsetEastDeg != 0.12 {
		t.Errorf("expected OffsetEastDeg = 0.12, got %v", data.OffsetEastDeg)
	}

	if data.OffsetNorthDeg != -0.34 {
		t.Errorf("expected OffsetNorthDeg = -0.34, got %v", data.OffsetNorthDeg)
	}

	if data.GuideTextRA == "" || data.GuideTextDEC == "" {
		t.Errorf("expected non-empty guide text strings, got %q / %q", data.GuideTextRA, data.GuideTextDEC)
	}

	if data.Corner != corner {
		t.Errorf("expected corners to be carried through unchanged")
	}

	if data.TruePoleDEC != 90.0 {
		t.Errorf("expected TruePoleDEC = 90.0, got %v", data.TruePoleDEC)
	}
}

/*****************************************************************************************************************/

func TestEventEnvelopeCarriesKindAndData(t *testing.T) {
	ev := Event{
		Kind: KindStateChanged,
		Data: StateChanged{Component: "autofocus", State: "CAPTURING", Message: "", Percent: 25},
	}

	if ev.Kind != KindStateChanged {
		t.Errorf("expected KindStateChanged, got %v", ev.Kind)
	}

	sc, ok := ev.Data.(StateChanged)
	if !ok {
		t.Fatalf("expected Data to be a StateChanged payload")
	}

	if sc.Component != "autofocus" || sc.Percent != 25 {
		t.Errorf("unexpected payload contents: %+v", sc)
	}
}

/*****************************************************************************************************************/
