package lifecycle

import (
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
)

// Maturation stage transition thresholds (spec.md §3): a fiber climbs
// one stage at a time, never skipping, as it ages and gets reinforced.
const (
	stmToWorkingMinAge          = 30 * time.Minute
	workingToEpisodicMinAge     = 4 * time.Hour
	episodicToSemanticMinAge    = 7 * 24 * time.Hour
	episodicToSemanticMinDays   = 3
)

// Reinforce records one reinforcement event on a fiber's Maturation
// record — bumping reinforcement_count and the set of distinct
// calendar days reinforced on — then advances its stage if the
// corresponding age/reinforcement threshold has been crossed. Called
// from the reflex pipeline's deferred-write stage whenever a fiber is
// traversed or conducted, and from the encoder when a fiber is reused
// rather than newly created.
func Reinforce(mat *core.Maturation, fiberCreatedAt time.Time, now time.Time) {
	mat.Lock()
	mat.ReinforcementCount++
	mat.ReinforcementDays[now.UTC().Format("2006-01-02")] = struct{}{}
	mat.Unlock()

	AdvanceStage(mat, fiberCreatedAt, now)
}

// AdvanceStage evaluates the stage transition rules without recording
// a reinforcement event, used by the standalone maturation pass a
// decay/consolidation run makes over every fiber (a fiber can age into
// WORKING or EPISODIC purely from the passage of time).
func AdvanceStage(mat *core.Maturation, fiberCreatedAt time.Time, now time.Time) {
	mat.Lock()
	defer mat.Unlock()

	age := now.Sub(fiberCreatedAt)

	switch mat.Stage {
	case core.StageSTM:
		if age >= stmToWorkingMinAge && mat.ReinforcementCount >= 1 {
			mat.Stage = core.StageWorking
			mat.StageEnteredAt = now
		}
	case core.StageWorking:
		if age >= workingToEpisodicMinAge {
			mat.Stage = core.StageEpisodic
			mat.StageEnteredAt = now
		}
	case core.StageEpisodic:
		if age >= episodicToSemanticMinAge && len(mat.ReinforcementDays) >= episodicToSemanticMinDays {
			mat.Stage = core.StageSemantic
			mat.StageEnteredAt = now
		}
	}
}
