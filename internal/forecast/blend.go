package forecast

// MicrogramsPerDatasetUnit converts the historical dataset's kg/m³-scale
// values to µg/m³, the unit of live observations. It is a fixed property of
// the dataset and is not checked at runtime.
const MicrogramsPerDatasetUnit = 1e9

// ToMicrograms converts a value in dataset units to µg/m³.
func ToMicrograms(v float64) float64 {
	return v * MicrogramsPerDatasetUnit
}

// Anomaly is the deviation of a live reading (µg/m³) from the historical
// monthly average (dataset units). A nil average yields exactly zero.
func Anomaly(live float64, average *float64) float64 {
	if average == nil {
		return 0
	}
	return live - ToMicrograms(*average)
}

// Blend corrects a base prediction (dataset units) by an anomaly (µg/m³) and
// returns the final forecast in µg/m³.
func Blend(base, anomaly float64) float64 {
	return ToMicrograms(base) + anomaly
}
