package vitals

// Evaluate compares a snapshot against thresholds and returns one flag per
// channel. Comparisons are strict (a value exactly at a bound does not
// trigger); blood pressure breaches when either component crosses its bound.
// A nil snapshot yields all-false flags, the documented safe default.
func Evaluate(s *Snapshot, t Thresholds) Flags {
	if s == nil {
		return Flags{}
	}
	return Flags{
		HeartRateHigh: s.HeartRate > t.HeartRateHigh,
		HeartRateLow:  s.HeartRate < t.HeartRateLow,
		BloodPressureHigh: s.BloodPressure.Systolic > t.BloodPressureHigh.Systolic ||
			s.BloodPressure.Diastolic > t.BloodPressureHigh.Diastolic,
		BloodPressureLow: s.BloodPressure.Systolic < t.BloodPressureLow.Systolic ||
			s.BloodPressure.Diastolic < t.BloodPressureLow.Diastolic,
		OxygenSaturationLow: s.OxygenSaturation < t.OxygenSaturationLow,
		TemperatureHigh:     s.Temperature > t.TemperatureHigh,
		TemperatureLow:      s.Temperature < t.TemperatureLow,
	}
}

// ecgSampleRateHz is the sampling rate of the ESP32 firmware's ECG window.
const ecgSampleRateHz = 125

// EstimateHeartRate derives beats per minute from a raw ECG window by
// counting R-peaks. A sample is a peak when it rises above the threshold
// relative to its neighbours. Returns 0 when the window is too short or
// contains no peaks.
func EstimateHeartRate(samples []float64, sampleRateHz float64) int {
	if len(samples) < 3 || sampleRateHz <= 0 {
		return 0
	}

	// Peak threshold sits between the window mean and maximum.
	var sum, max float64
	max = samples[0]
	for _, v := range samples {
		sum += v
		if v > max {
			max = v
		}
	}
	mean := sum / float64(len(samples))
	threshold := mean + (max-mean)*0.5

	peaks := 0
	for i := 1; i < len(samples)-1; i++ {
		if samples[i] > threshold && samples[i] >= samples[i-1] && samples[i] > samples[i+1] {
			peaks++
		}
	}
	if peaks == 0 {
		return 0
	}

	windowSeconds := float64(len(samples)) / sampleRateHz
	return int(float64(peaks) / windowSeconds * 60.0)
}
