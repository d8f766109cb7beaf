package catalog

type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	// Histogram[i] counts ratings of i+1 stars.
	Histogram [5]int `json:"histogram"`
}

// Summarize computes the mean rating without rounding. Out of range
// ratings are ignored.
func Summarize(ratings []int) RatingSummary {
	var rs RatingSummary
	sum := 0
	for _, r := range ratings {
		if r < 1 || r > 5 {
			continue
		}
		rs.Histogram[r-1]++
		rs.Count++
		sum += r
	}
	if rs.Count > 0 {
		rs.Average = float64(sum) / float64(rs.Count)
	}
	return rs
}
