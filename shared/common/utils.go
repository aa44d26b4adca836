package common

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// NumberUtils provides number utility functions
type NumberUtils struct{}

// Round rounds a float64 to the specified decimal places
func (NumberUtils) Round(value float64, decimals int) float64 {
	ratio := math.Pow(10, float64(decimals))
	return math.Round(value*ratio) / ratio
}

// TimeUtils provides time utility functions
type TimeUtils struct{}

// FormatDuration formats a duration in a human-readable way
func (TimeUtils) FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%.1fd", d.Hours()/24)
}

// JSONUtils provides JSON utility functions
type JSONUtils struct{}

// IsValidJSONBytes checks if a byte slice holds a single valid JSON document
func (JSONUtils) IsValidJSONBytes(data []byte) bool {
	return json.Valid(data)
}
