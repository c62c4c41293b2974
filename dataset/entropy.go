package dataset

import "math"

// BalanceEntropy is the Shannon entropy of the label distribution divided by
// its maximum, so 1 means perfectly balanced. Empty labels are ignored; a
// single non-empty label counts as balanced and no data at all yields 0.
func BalanceEntropy(counts map[string]int) float64 {
	total, classes := 0, 0
	for _, c := range counts {
		if c > 0 {
			total += c
			classes++
		}
	}
	if classes == 0 {
		return 0
	}
	if classes == 1 {
		return 1
	}

	h := 0.0
	for _, c := range counts {
		if c <= 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log(p)
	}
	return math.Min(1, h/math.Log(float64(classes)))
}
