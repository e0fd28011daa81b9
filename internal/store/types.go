package store

import (
	"time"

	"github.com/google/uuid"
)

// ID is an opaque identifier for learners, knowledge components, items
// and interactions. The persistence layer decides what goes inside it.
type ID string

// NewID returns a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string {
	return string(id)
}

// Status represents a skill state's position in the mastery lifecycle.
type Status string

const (
	StatusLocked     Status = "locked"
	StatusAvailable  Status = "available"
	StatusInProgress Status = "in_progress"
	StatusMastered   Status = "mastered"
)

// KnowledgeComponent is a single skill node in the curriculum graph.
// Created by curriculum authoring; read-only to the engine.
type KnowledgeComponent struct {
	ID        ID     `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	Domain    string `gorm:"index" json:"domain"`
	Tier      int    `gorm:"index" json:"tier"` // difficulty tier; 1 = entry
	CreatedAt time.Time
}

// Prerequisite is one edge of the prerequisite DAG: KCID requires PrereqID.
type Prerequisite struct {
	KCID     ID   `gorm:"primaryKey;index" json:"kc_id"`
	PrereqID ID   `gorm:"primaryKey" json:"prereq_id"`
	Required bool `json:"required"`
}

// LearningItem is a gradeable practice unit tied to one knowledge
// component. Difficulty and Discrimination are 2PL IRT parameters and
// are mutated only by calibration; the empirical stats are running
// aggregates updated on every answer.
type LearningItem struct {
	ID             ID      `gorm:"primaryKey" json:"id"`
	KCID           ID      `gorm:"index" json:"kc_id"`
	Prompt         string  `json:"prompt"`
	Difficulty     float64 `json:"difficulty"`     // IRT b
	Discrimination float64 `json:"discrimination"` // IRT a, > 0

	ResponseCount         int        `json:"response_count"`
	CorrectRate           float64    `json:"correct_rate"`
	AvgResponseMs         float64    `json:"avg_response_ms"`
	CalibrationSampleSize int        `json:"calibration_sample_size"`
	CalibratedAt          *time.Time `json:"calibrated_at,omitempty"`
}

// SkillState is the per-(learner, KC) progress record. It carries the
// BKT mastery estimate with its parameters and the FSRS memory state.
// Never deleted; only its Status transitions.
type SkillState struct {
	LearnerID ID `gorm:"primaryKey" json:"learner_id"`
	KCID      ID `gorm:"primaryKey" json:"kc_id"`

	// Bayesian Knowledge Tracing.
	PMastery float64 `json:"p_mastery"` // in [0, 1]
	PInit    float64 `json:"p_init"`
	PLearn   float64 `json:"p_learn"`
	PSlip    float64 `json:"p_slip"`
	PGuess   float64 `json:"p_guess"`

	// FSRS memory model.
	Stability      float64    `json:"stability"`  // days, > 0
	Difficulty     float64    `json:"difficulty"` // in [1, 10]
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	NextReviewAt   *time.Time `json:"next_review_at,omitempty"`

	Status        Status     `gorm:"index" json:"status"`
	TotalAttempts int        `json:"total_attempts"`
	CorrectCount  int        `json:"correct_count"`
	MasteredAt    *time.Time `json:"mastered_at,omitempty"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Accuracy returns the observed correct ratio for this skill state.
func (s *SkillState) Accuracy() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.CorrectCount) / float64(s.TotalAttempts)
}

// Interaction is the immutable record of one answered item. The
// *_Before fields snapshot model state as it was when the answer was
// graded, so calibration sees what the engine predicted at the time.
type Interaction struct {
	ID        ID     `gorm:"primaryKey" json:"id"`
	LearnerID ID     `gorm:"index:idx_interactions_learner_kc" json:"learner_id"`
	KCID      ID     `gorm:"index:idx_interactions_learner_kc" json:"kc_id"`
	ItemID    ID     `gorm:"index" json:"item_id"`
	SessionID string `json:"session_id,omitempty"`

	Correct        bool   `json:"correct"`
	ResponseValue  string `json:"response_value,omitempty"`
	ResponseTimeMs int    `json:"response_time_ms"`
	HintUsed       bool   `json:"hint_used"`

	PMasteryBefore       float64 `json:"p_mastery_before"`
	RetrievabilityBefore float64 `json:"retrievability_before"`
	PredictedPCorrect    float64 `json:"predicted_p_correct"`

	CreatedAt time.Time `gorm:"index"`
}

// KCFilter narrows a knowledge-component listing. Zero values match all.
type KCFilter struct {
	Domain string
	Tier   int
}
