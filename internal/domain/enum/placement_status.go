package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// PlacementStatus represents the lifecycle of a placement's generated file
type PlacementStatus int

const (
	PlacementStatusPending    PlacementStatus = 0
	PlacementStatusProcessing PlacementStatus = 1
	PlacementStatusReady      PlacementStatus = 2
	PlacementStatusFailed     PlacementStatus = 3
)

func (s PlacementStatus) String() string {
	return [...]string{"pending", "processing", "ready", "failed"}[s]
}

func (s PlacementStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *PlacementStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		// Try unmarshaling as int
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*s = PlacementStatus(i)
		return nil
	}
	switch str {
	case "pending":
		*s = PlacementStatusPending
	case "processing":
		*s = PlacementStatusProcessing
	case "ready":
		*s = PlacementStatusReady
	case "failed":
		*s = PlacementStatusFailed
	}
	return nil
}

// ParsePlacementStatus parses a status name, reporting whether it is known
func ParsePlacementStatus(s string) (PlacementStatus, bool) {
	switch s {
	case "pending":
		return PlacementStatusPending, true
	case "processing":
		return PlacementStatusProcessing, true
	case "ready":
		return PlacementStatusReady, true
	case "failed":
		return PlacementStatusFailed, true
	}
	return PlacementStatusPending, false
}

func (s PlacementStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *PlacementStatus) Scan(value interface{}) error {
	if value == nil {
		*s = PlacementStatusPending
		return nil
	}
	switch v := value.(type) {
	case int64:
		*s = PlacementStatus(v)
	case int:
		*s = PlacementStatus(v)
	}
	return nil
}
