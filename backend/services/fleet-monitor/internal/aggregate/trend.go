package aggregate

// Trend compares a value with its previous point.
func Trend(current, previous float64) string {
	switch {
	case current > previous:
		return "up"
	case current < previous:
		return "down"
	}
	return "stable"
}

// CurrentDirection reports the flow implied by the sign of current.
func CurrentDirection(current float64) string {
	switch {
	case current > 0:
		return "Discharging"
	case current < 0:
		return "Charging"
	}
	return "Idle"
}
