package eval

import (
	"strings"
	"unicode"
)

// Quality holds rubric-based scores for one response, each on a 0-100
// scale. Overall is a weighted blend: completeness 30%, format 20%,
// factuality 30%, coherence 20%.
type Quality struct {
	Overall      int
	Completeness int
	Format       int
	Factuality   int
	Coherence    int
}

var uncertaintyMarkers = []string{
	"i think", "maybe", "probably", "might be", "could be",
	"not sure", "uncertain", "guess", "perhaps",
}

// ScoreResponse applies the rubric to raw response text. Empty text
// scores zero across the board.
func ScoreResponse(text string) Quality {
	if text == "" || text == "None" {
		return Quality{}
	}
	lower := strings.ToLower(text)

	// Completeness: length adequacy.
	var completeness int
	switch n := len(text); {
	case n < 50:
		completeness = 30
	case n < 150:
		completeness = 60
	case n < 300:
		completeness = 85
	default:
		completeness = 100
	}

	// Format: sentence punctuation and capitalization.
	format := 50
	if strings.ContainsAny(text, ".?!") {
		format += 30
	}
	if strings.IndexFunc(text, unicode.IsUpper) >= 0 {
		format += 20
	}
	if format > 100 {
		format = 100
	}

	// Factuality: each distinct uncertainty marker costs 15 points.
	uncertain := 0
	for _, marker := range uncertaintyMarkers {
		if strings.Contains(lower, marker) {
			uncertain++
		}
	}
	factuality := 100 - uncertain*15
	if factuality < 0 {
		factuality = 0
	}

	// Coherence: fragments shorter than 10 chars cost 20 points, floor 50.
	incomplete := 0
	for _, sentence := range strings.Split(text, ".") {
		s := strings.TrimSpace(sentence)
		if s != "" && len(s) < 10 {
			incomplete++
		}
	}
	coherence := 100 - incomplete*20
	if coherence < 50 {
		coherence = 50
	}

	overall := int(float64(completeness)*0.3 +
		float64(format)*0.2 +
		float64(factuality)*0.3 +
		float64(coherence)*0.2)

	return Quality{
		Overall:      overall,
		Completeness: completeness,
		Format:       format,
		Factuality:   factuality,
		Coherence:    coherence,
	}
}
