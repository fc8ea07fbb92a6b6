package contracts

import (
	"bytes"
	"encoding/json"
	"math"
)

// Metric is a float that may be undefined (NaN) or unbounded (Inf).
// Non-finite values encode as JSON null and decode back to NaN.
type Metric float64

// Undefined returns the NaN metric
func Undefined() Metric {
	return Metric(math.NaN())
}

// Float returns the raw value
func (m Metric) Float() float64 {
	return float64(m)
}

// IsDefined reports a finite value
func (m Metric) IsDefined() bool {
	f := float64(m)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// MarshalJSON implements json.Marshaler
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.IsDefined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(m))
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Metric) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Undefined()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}
