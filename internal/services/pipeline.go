package services

import (
	"fmt"
)

// Stage names one step of post generation.
type Stage string

const (
	StageSelectAuthor    Stage = "select_author"
	StageSelectScenario  Stage = "select_scenario"
	StageResolveProducts Stage = "resolve_products"
	StageAvatar          Stage = "generate_avatar"
	StageScene           Stage = "generate_scene"
	StageVision          Stage = "analyze_image"
	StageLocalize        Stage = "localize_tags"
	StageEssentials      Stage = "generate_essentials"
	StageCopy            Stage = "generate_copy"
	StageAssemble        Stage = "assemble"
	StageEmit            Stage = "emit"
)

// FailurePolicy says what a failing stage does to the tick.
type FailurePolicy int

const (
	// Abort ends the tick and returns a *StageError.
	Abort FailurePolicy = iota
	// Skip drops the enhancement and carries on.
	Skip
	// Substitute replaces the result with a fixed value and carries on.
	Substitute
)

func (p FailurePolicy) String() string {
	switch p {
	case Abort:
		return "abort"
	case Skip:
		return "skip"
	case Substitute:
		return "substitute"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// stagePolicies classifies every collaborator call site. Stages not listed
// abort.
var stagePolicies = map[Stage]FailurePolicy{
	StageAvatar:     Substitute,
	StageScene:      Abort,
	StageVision:     Skip,
	StageLocalize:   Skip,
	StageEssentials: Skip,
	StageCopy:       Abort,
	StageEmit:       Abort,
}

// PolicyFor returns the failure policy of stage.
func PolicyFor(stage Stage) FailurePolicy {
	if p, ok := stagePolicies[stage]; ok {
		return p
	}
	return Abort
}

// StageError reports which stage aborted a tick.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }
