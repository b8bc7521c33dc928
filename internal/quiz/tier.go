package quiz

// Tier buckets a final score into the logo reward: 100+ earns 3, 70+ earns 2,
// 40+ earns 1.
func Tier(score int) int {
	switch {
	case score >= 100:
		return 3
	case score >= 70:
		return 2
	case score >= 40:
		return 1
	default:
		return 0
	}
}
