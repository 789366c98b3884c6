package model

// Stage is the inferred phase of the conversation lifecycle. There is no
// terminal state: closing may be followed by a fresh opening if the user
// keeps talking.
type Stage string

const (
	StageOpening      Stage = "opening"
	StageExploring    Stage = "exploring"
	StageClarifying   Stage = "clarifying"
	StageSearching    Stage = "searching"
	StageRecommending Stage = "recommending"
	StageDeciding     Stage = "deciding"
	StageClosing      Stage = "closing"
)

// AllStages lists every valid stage in lifecycle order.
var AllStages = []Stage{
	StageOpening,
	StageExploring,
	StageClarifying,
	StageSearching,
	StageRecommending,
	StageDeciding,
	StageClosing,
}

// ValidStage reports whether s names a member of the stage set.
func ValidStage(s string) bool {
	for _, st := range AllStages {
		if string(st) == s {
			return true
		}
	}
	return false
}

// StageContext is the static metadata attached to a stage, consumed by the
// proactive question engine.
type StageContext struct {
	Focus         string   `json:"focus"`
	Goals         []string `json:"goals"`
	Tone          string   `json:"tone"`
	QuestionStyle string   `json:"question_style"`
}
