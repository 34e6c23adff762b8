package airquality

import "math"

type breakpoint struct {
	cLow, cHigh float64
	iLow, iHigh float64
}

// US EPA breakpoints in µg/m³.
var (
	pm25Breakpoints = []breakpoint{
		{0.0, 12.0, 0, 50},
		{12.1, 35.4, 51, 100},
		{35.5, 55.4, 101, 150},
		{55.5, 150.4, 151, 200},
		{150.5, 250.4, 201, 300},
		{250.5, 350.4, 301, 400},
		{350.5, 500.4, 401, 500},
	}

	pm10Breakpoints = []breakpoint{
		{0, 54, 0, 50},
		{55, 154, 51, 100},
		{155, 254, 101, 150},
		{255, 354, 151, 200},
		{355, 424, 201, 300},
		{425, 504, 301, 400},
		{505, 604, 401, 500},
	}
)

// Index500 is a 0-500 AQI computed from pollutant concentrations.
type Index500 struct {
	// Overall is the highest sub-index, nil when no supported pollutant
	// fell inside a breakpoint range.
	Overall    *float64          `json:"overall"`
	Subindices map[Pollutant]int `json:"subindices"`
}

// subIndex linearly interpolates within the matching breakpoint. Values in
// the gaps between ranges (e.g. 12.05) and beyond the last range have no index.
func subIndex(value float64, bps []breakpoint) (int, bool) {
	for _, bp := range bps {
		if value >= bp.cLow && value <= bp.cHigh {
			idx := (bp.iHigh-bp.iLow)/(bp.cHigh-bp.cLow)*(value-bp.cLow) + bp.iLow
			return int(math.RoundToEven(idx)), true
		}
	}
	return 0, false
}

// Compute500 derives the EPA index from PM2.5 and PM10 concentrations.
func Compute500(components map[Pollutant]float64) Index500 {
	result := Index500{Subindices: make(map[Pollutant]int)}

	consider := func(p Pollutant, bps []breakpoint) {
		v, ok := components[p]
		if !ok {
			return
		}
		idx, ok := subIndex(v, bps)
		if !ok {
			return
		}
		result.Subindices[p] = idx
		f := float64(idx)
		if result.Overall == nil || f > *result.Overall {
			result.Overall = &f
		}
	}

	consider(PollutantPM25, pm25Breakpoints)
	consider(PollutantPM10, pm10Breakpoints)

	return result
}
