package engine

import "fmt"

// UCIScore renders a White-relative score for the side to move, as UCI
// expects. A mate score becomes "mate N" using the length of the line that
// reaches it.
func UCIScore(score int32, whiteToMove bool, lineLen int) string {
	if !whiteToMove {
		score = -score
	}
	if IsMateScore(score) {
		mateInN := (lineLen + 1) / 2
		if score < 0 {
			return fmt.Sprintf("mate %d", -mateInN)
		}
		return fmt.Sprintf("mate %d", mateInN)
	}
	return fmt.Sprintf("cp %d", score)
}

// IsMateScore reports whether score means one side is mated.
func IsMateScore(score int32) bool {
	return abs32(score) >= MaxScore
}
