package rundown

import (
	"reflect"
)

// Normalize collapses the three ways an editor expresses "empty" (null,
// missing, empty string) into one sentinel: nil. Editors' autosave paths
// fire on every keystroke debounce, and without this collapse the version
// counter would churn on writes that change nothing, starving real
// conflict detection with false positives.
func Normalize(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return v
	default:
		return value
	}
}

// NormalizedEqual reports whether two field values are the same after
// normalization. Values arrive JSON-decoded on both sides (request body
// and jsonb column), so numbers compare as float64 against float64.
func NormalizedEqual(a, b interface{}) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == nil || nb == nil {
		return na == nil && nb == nil
	}
	return reflect.DeepEqual(na, nb)
}
