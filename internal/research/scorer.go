package research

// Scorer turns a merged candidate into a final confidence score. The scorer
// is swappable so ranking experiments don't touch the agent.
type Scorer interface {
	Score(c Candidate) int
}

// DefaultScorer blends extraction certainty with an independent-source bonus.
// Additional corroborating sources can only raise the score, never lower it.
type DefaultScorer struct{}

// Per-source corroboration bonus and its cap.
const (
	sourceBonus     = 10
	maxSourceBonus  = 30
	mentionBonus    = 2
	maxMentionBonus = 10
)

// Score computes the candidate's confidence, capped at 100.
func (DefaultScorer) Score(c Candidate) int {
	score := c.Extraction

	if extra := len(c.SourceIDs) - 1; extra > 0 {
		bonus := extra * sourceBonus
		if bonus > maxSourceBonus {
			bonus = maxSourceBonus
		}
		score += bonus
	}

	if extra := c.MentionCount - len(c.SourceIDs); extra > 0 {
		bonus := extra * mentionBonus
		if bonus > maxMentionBonus {
			bonus = maxMentionBonus
		}
		score += bonus
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
