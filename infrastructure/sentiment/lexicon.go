// Package sentiment provides a compact lexicon scorer producing VADER-style
// compound scores in [-1, 1].
package sentiment

import (
	"math"
	"strings"
	"unicode"
)

const (
	// normalisation constant of the VADER compound score
	alpha         = 15.0
	negationScale = -0.74
	boosterIncr   = 0.293
	exclaimIncr   = 0.292
	maxExclaims   = 4
)

var lexicon = map[string]float64{
	"love": 3.2, "loved": 2.9, "loving": 2.9, "awesome": 3.1, "amazing": 2.8,
	"great": 3.1, "good": 1.9, "nice": 1.8, "best": 3.2, "excellent": 2.7,
	"fantastic": 2.6, "wonderful": 2.7, "beautiful": 2.9, "cool": 1.3, "fun": 2.3,
	"funny": 1.9, "happy": 2.7, "like": 1.5, "liked": 1.8, "enjoy": 2.2,
	"enjoyed": 2.3, "helpful": 1.8, "thanks": 1.9, "thank": 1.5, "perfect": 2.7,
	"brilliant": 2.8, "interesting": 1.7, "wow": 2.8, "useful": 1.9, "favorite": 2.0,
	"incredible": 2.6, "impressive": 2.3, "recommend": 1.5, "glad": 2.0, "win": 2.8,
	"hate": -2.7, "hated": -3.2, "bad": -2.5, "worst": -3.1, "terrible": -2.1,
	"awful": -2.0, "horrible": -2.5, "boring": -1.3, "stupid": -2.4, "sad": -2.1,
	"poor": -2.1, "ugly": -2.3, "annoying": -1.7, "disappointed": -1.9, "disappointing": -2.2,
	"waste": -1.8, "useless": -1.8, "wrong": -2.1, "fake": -2.1, "trash": -1.5,
	"garbage": -2.5, "sucks": -1.5, "angry": -2.3, "cringe": -1.7, "dislike": -1.6,
	"fail": -2.5, "failed": -2.3, "broken": -1.9, "scam": -2.6, "lame": -1.8,
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "none": true, "nothing": true,
	"neither": true, "nor": true, "without": true, "cannot": true,
}

var boosters = map[string]float64{
	"very": boosterIncr, "really": boosterIncr, "extremely": boosterIncr, "so": boosterIncr,
	"super": boosterIncr, "absolutely": boosterIncr, "totally": boosterIncr, "incredibly": boosterIncr,
	"slightly": -boosterIncr, "somewhat": -boosterIncr, "barely": -boosterIncr, "kinda": -boosterIncr,
}

// LexiconScorer is stateless and safe for concurrent use
type LexiconScorer struct{}

func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{}
}

// Score returns the compound sentiment of text in [-1, 1]
func (LexiconScorer) Score(text string) float64 {
	tokens := tokenize(text)
	sum := 0.0
	for i, tok := range tokens {
		valence, ok := lexicon[tok]
		if !ok {
			continue
		}
		for back := 1; back <= 3 && i-back >= 0; back++ {
			prev := tokens[i-back]
			if incr, ok := boosters[prev]; ok && back == 1 {
				if valence > 0 {
					valence += incr
				} else {
					valence -= incr
				}
			}
			if isNegation(prev) {
				valence *= negationScale
				break
			}
		}
		sum += valence
	}

	if sum != 0 {
		exclaims := math.Min(float64(strings.Count(text, "!")), maxExclaims)
		if sum > 0 {
			sum += exclaims * exclaimIncr
		} else {
			sum -= exclaims * exclaimIncr
		}
	}
	return normalize(sum)
}

func normalize(sum float64) float64 {
	score := sum / math.Sqrt(sum*sum+alpha)
	return math.Max(-1, math.Min(1, score))
}

func isNegation(tok string) bool {
	return negations[tok] || strings.HasSuffix(tok, "n't")
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}
