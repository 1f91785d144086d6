package domain

import "time"

type RelationType string

const (
	RelationDependsOn   RelationType = "depends_on"
	RelationContradicts RelationType = "contradicts"
)

func ValidRelationType(r string) bool {
	switch RelationType(r) {
	case RelationDependsOn, RelationContradicts:
		return true
	}
	return false
}

// Relation is a RELATES_TO edge between two hypotheses. For depends_on,
// ToID is the dependent: a change in FromID spreads to ToID scaled by
// Strength.
type Relation struct {
	FromID   string       `json:"from_id"`
	ToID     string       `json:"to_id"`
	Type     RelationType `json:"type"`
	Strength float64      `json:"strength"`
	Created  time.Time    `json:"created"`
}

// DependentState is what propagation needs to know about a dependent
// hypothesis reached over a depends_on edge.
type DependentState struct {
	HypothesisID string
	Confidence   float64
	Strength     float64
	Verified     bool
}

// PropagationImpact records one dependent nudged during propagation.
type PropagationImpact struct {
	HypothesisID string  `json:"id"`
	Impact       float64 `json:"impact"`
	Depth        int     `json:"depth"`
	Confidence   float64 `json:"confidence"`
}
