// Package readtime estimates how long a post takes to read.
package readtime

import (
	"math"
	"strconv"
	"unicode"
)

// WordsPerMinute is the reading speed used by Estimate.
const WordsPerMinute = 200

// Stats is the result of an estimate.
type Stats struct {
	Words   int
	Minutes float64
	Text    string
}

// Estimate counts the words in raw and converts them to a reading time.
// Han, Hiragana, Katakana and Hangul characters each count as one word.
func Estimate(raw string) Stats {
	words := CountWords(raw)
	minutes := float64(words) / WordsPerMinute
	// Round to two decimals first so 200.4 words does not read as 2 min.
	displayed := int(math.Ceil(math.Round(minutes*100) / 100))
	return Stats{
		Words:   words,
		Minutes: minutes,
		Text:    strconv.Itoa(displayed) + " min read",
	}
}

// CountWords returns the number of words in s.
func CountWords(s string) int {
	count := 0
	inWord := false
	for _, r := range s {
		switch {
		case isCJK(r):
			count++
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				count++
				inWord = true
			}
		case unicode.IsSpace(r):
			inWord = false
		}
	}
	return count
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}
