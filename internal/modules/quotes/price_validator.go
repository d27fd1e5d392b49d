package quotes

import "github.com/aristath/storable/internal/domain"

// ValidateQuote checks OHLC consistency of a stored-precision quote.
// Returns (isValid, reason). Inconsistent quotes are still stored as the source reported them.
func ValidateQuote(q domain.Quote) (bool, string) {
	if q.High.LessThan(q.Low) {
		return false, "high_below_low"
	}
	if q.High.LessThan(q.Open) {
		return false, "high_below_open"
	}
	if q.High.LessThan(q.Close) {
		return false, "high_below_close"
	}
	if q.Low.GreaterThan(q.Open) {
		return false, "low_above_open"
	}
	if q.Low.GreaterThan(q.Close) {
		return false, "low_above_close"
	}
	if !q.Low.IsPositive() {
		return false, "non_positive_price"
	}
	return true, ""
}
