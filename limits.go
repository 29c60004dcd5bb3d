package pagequery

const (
	MaxLimit     = 100
	DefaultLimit = 10
)

// Limits bounds page sizes requested by clients. The zero value falls back to
// DefaultLimit and MaxLimit.
type Limits struct {
	Default int
	Max     int
}

// Normalize clamps limit into [1, Max], substituting Default for
// non-positive values. The second result is false when limit was changed.
func (l Limits) Normalize(limit int) (int, bool) {
	defaultLimit := l.Default
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}

	maxLimit := l.Max
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	defaultLimit = min(defaultLimit, maxLimit)

	if limit <= 0 {
		return defaultLimit, false
	} else if limit > maxLimit {
		return maxLimit, false
	}

	return limit, true
}

func IsNormalizedLimitMax(limit int, maxLimit int) (int, bool) {
	return Limits{Max: maxLimit}.Normalize(limit)
}

func NormalizeLimitMax(limit int, maxLimit int) int {
	ret, _ := IsNormalizedLimitMax(limit, maxLimit)
	return ret
}

func NormalizeLimit(limit int) int {
	return NormalizeLimitMax(limit, MaxLimit)
}
