package normalize

import "time"

// dedupeLatest collapses time-series rows onto their natural key, keeping the
// row with the most recent report date. Input order is preserved for the
// surviving rows so inserts stay deterministic.
func dedupeLatest[T any](rows []T, key func(T) string, reported func(T) time.Time) []T {
	latest := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		k := key(row)
		if ts, ok := latest[k]; !ok || reported(row).After(ts) {
			latest[k] = reported(row)
		}
	}

	out := make([]T, 0, len(latest))
	seen := make(map[string]bool, len(latest))
	for _, row := range rows {
		k := key(row)
		if seen[k] || !reported(row).Equal(latest[k]) {
			continue
		}
		seen[k] = true
		out = append(out, row)
	}
	return out
}
