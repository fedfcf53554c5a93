package domain

import "time"

// Snapshot is the decoded-and-scaled state of all fields as of the last
// successful poll cycle. Snapshots are replaced as a whole; consumers never
// observe a partially updated one.
type Snapshot struct {
	// Values maps field key to the scaled engineering value.
	Values map[string]float64 `json:"values"`

	// Success reports whether the most recent cycle reached the device.
	Success bool `json:"success"`

	// Generation increases by one every time the values are replaced.
	Generation uint64 `json:"generation"`

	// Timestamp is when the values were last replaced.
	Timestamp time.Time `json:"timestamp"`
}

// Value returns the decoded value for key and whether it is present.
func (s Snapshot) Value(key string) (float64, bool) {
	v, ok := s.Values[key]
	return v, ok
}
