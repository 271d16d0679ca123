package cmd

import "strings"

// suggestDistance is the largest edit distance still offered as a
// "did you mean" suggestion.
const suggestDistance = 3

// levenshtein computes the edit distance between two strings using a
// single-row rolling buffer.
func levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	row := make([]int, lb+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= la; i++ {
		prev := i - 1
		row[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			val := min(row[j]+1, row[j-1]+1, prev+cost)
			prev = row[j]
			row[j] = val
		}
	}
	return row[lb]
}

// closest returns the candidate nearest to input under case-insensitive
// edit distance, or "" when nothing is within suggestDistance. The compare
// function maps a candidate to the form used for matching; the original
// candidate is returned.
func closest(input string, candidates []string, compare func(string) string) string {
	input = strings.ToLower(input)
	bestDist := suggestDistance + 1
	bestMatch := ""
	for _, c := range candidates {
		d := levenshtein(input, strings.ToLower(compare(c)))
		if d < bestDist {
			bestDist = d
			bestMatch = c
		}
	}
	return bestMatch
}

// suggestCommand finds the closest command name to the unknown input.
func suggestCommand(unknown string, commands []string) string {
	return closest(unknown, commands, func(c string) string { return c })
}

// suggestFlag finds the closest flag name to the unknown input. Leading
// dashes are ignored for matching but kept on the returned flag.
func suggestFlag(unknown string, flags []string) string {
	stripped := strings.TrimLeft(unknown, "-")
	if stripped == "" {
		return ""
	}
	return closest(stripped, flags, func(f string) string { return strings.TrimLeft(f, "-") })
}
