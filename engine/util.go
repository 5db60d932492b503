package engine

// Max32 returns the larger of x or y.
func Max32(x, y int32) int32 {
	if x > y {
		return x
	}
	return y
}

// Min32 returns the smaller of x or y.
func Min32(x, y int32) int32 {
	if x < y {
		return x
	}
	return y
}

// abs32 returns the absolute value of x.
func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}

// better reports whether score a beats b for the given side. Ties never win.
func better(a, b int32, maximizing bool) bool {
	if maximizing {
		return a > b
	}
	return a < b
}
