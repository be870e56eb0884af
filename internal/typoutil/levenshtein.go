// Package typoutil finds indexed terms within a small edit distance of a
// query token, for "did you mean" suggestions.
package typoutil

// Distance returns the Damerau-Levenshtein distance between a and b: the
// number of insertions, deletions, substitutions and adjacent transpositions
// turning one into the other. It works on runes. Once the distance is known
// to exceed limit it stops and returns limit+1.
func Distance(a, b string, limit int) int {
	ra := []rune(a)
	rb := []rune(b)
	la, lb := len(ra), len(rb)

	if diff := la - lb; diff > limit || -diff > limit {
		return limit + 1
	}
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	// three rolling rows; the one two steps back serves transpositions
	prevPrev := make([]int, lb+1)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		rowMin := i

		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			best := min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				best = min(best, prevPrev[j-2]+cost)
			}
			curr[j] = best
			rowMin = min(rowMin, best)
		}

		if rowMin > limit {
			return limit + 1
		}
		prevPrev, prev, curr = prev, curr, prevPrev
	}

	return prev[lb]
}

// MaxDistanceFor returns how many edits a suggestion for token may be away:
// none below 4 runes, one below 8, two otherwise.
func MaxDistanceFor(token string) int {
	n := len([]rune(token))
	switch {
	case n < 4:
		return 0
	case n < 8:
		return 1
	default:
		return 2
	}
}
