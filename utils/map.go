package utils

// Map applies f to every element of ts, preserving order.
func Map[T, U any](ts []T, f func(T) U) []U {
	us := make([]U, len(ts))
	for i, v := range ts {
		us[i] = f(v)
	}
	return us
}

// MapKeys applies f to every key of m. Order follows map iteration, so
// callers needing a stable order must sort the result.
func MapKeys[K comparable, V, W any](m map[K]V, f func(K) W) []W {
	ws := make([]W, 0, len(m))
	for k := range m {
		ws = append(ws, f(k))
	}
	return ws
}
