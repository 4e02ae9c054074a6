package searcher

import (
	"math"

	"github.com/FinesserULTRA/Search-Engine/pkg/config"
)

// score computes a candidate's relevance:
//
//	raw  = freq*baseFreqWeight + Σ fieldWeight(matched field)
//	       + min(matchedTokens, freq)*multiTokenBonus
//	base = raw / (1 + lengthNormFactor*freq)
//
// The length normalization dampens unbounded growth from highly repetitive
// documents. The result is clamped to never fall below the base frequency
// weight, so the sentiment adjustment cannot drive a match to zero or below.
func (e *Engine) score(w config.TargetWeights, c *candidate, querySent float64, docID string) float64 {
	freq := float64(c.freq)
	s := freq * w.BaseFreqWeight
	for _, f := range c.fields {
		weight, ok := w.Fields[f]
		if !ok {
			weight = e.scoring.DefaultFieldWeight
		}
		s += weight
	}
	s += math.Min(float64(c.tokens), freq) * w.MultiTokenBonus
	s /= 1 + e.scoring.LengthNormFactor*freq
	if s < w.BaseFreqWeight {
		s = w.BaseFreqWeight
	}

	if e.sentiment.Enabled && querySent != 0 {
		docSent := e.sentiments.Get(docID)
		if docSent != 0 {
			align := e.sentiment.AlignBoost * math.Min(math.Abs(querySent), math.Abs(docSent))
			if querySent*docSent > 0 {
				s += align
			} else {
				s -= align
			}
			if s < w.BaseFreqWeight {
				s = w.BaseFreqWeight
			}
		}
	}
	return s
}
