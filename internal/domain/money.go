package domain

// Monetary amounts are carried as int64 centavos throughout the engine.

// AverageHalfUp returns the mean of two centavo amounts rounded half-up at
// the centavo, matching the two-flavor blend pricing rule: the average of
// 10.00 and 10.25 is 10.13.
func AverageHalfUp(a, b int64) int64 {
	sum := a + b
	if sum >= 0 {
		return (sum + 1) / 2
	}
	return sum / 2
}
