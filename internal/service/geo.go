package service

import (
	"fmt"
	"math"
)

// GeoBucket groups nearby coordinates into a coarse string key by rounding
// both coordinates to precision decimal degrees (2 ≈ 1.1 km bins). Returns ""
// for non-finite inputs. Write-time tagging and read-time prefix filters must
// use the same precision or the filter silently matches nothing.
func GeoBucket(lat, lng float64, precision int) string {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return ""
	}
	if precision < 0 {
		precision = 0
	}
	return fmt.Sprintf("%.*f,%.*f", precision, lat, precision, lng)
}
