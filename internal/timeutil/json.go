package timeutil

import (
	"encoding/json"
	"time"
)

// Timestamp wraps time.Time so that JSON marshaling emits the crawler's
// canonical UTC ISO 8601 form instead of Go's default RFC 3339.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToISO(time.Time(ts)))
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := FromISO(s)
	if err != nil {
		return err
	}
	*ts = Timestamp(t)
	return nil
}

// Time returns the wrapped time value.
func (ts Timestamp) Time() time.Time {
	return time.Time(ts)
}
