package enrich

// source is one prioritized producer in an ordered fallback chain. Every
// enrichment pass parametrizes the same chain shape instead of repeating its
// own fallback logic.
type source[T any] struct {
	name string
	fn   func() (T, bool)
}

// firstOf evaluates sources in priority order and returns the first non-empty
// result along with the winning source name.
func firstOf[T any](sources ...source[T]) (T, string, bool) {
	for _, s := range sources {
		if v, ok := s.fn(); ok {
			return v, s.name, true
		}
	}
	var zero T
	return zero, "", false
}
