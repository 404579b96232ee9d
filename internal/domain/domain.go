// Package domain holds the persisted rows and enums of the mastery and coaching engine.
package domain

import (
	"encoding/json"

	"gorm.io/datatypes"
)

func encodeJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(raw)
}

func decodeJSON(raw datatypes.JSON, dst any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
