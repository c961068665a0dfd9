package shared

// Period statuses reused outside the periods package.
const (
	PeriodStatusOpen   = "open"
	PeriodStatusClosed = "closed"
	PeriodStatusLocked = "locked"
)

// ValidatePeriodTransition checks transitions according to policy.
// The lifecycle is one-directional: open -> closed -> locked, no regressions.
func ValidatePeriodTransition(current, target string) error {
	if current == target {
		return nil
	}
	switch current {
	case PeriodStatusOpen:
		if target == PeriodStatusClosed {
			return nil
		}
	case PeriodStatusClosed:
		if target == PeriodStatusLocked {
			return nil
		}
	}
	return ErrInvalidTransition
}
