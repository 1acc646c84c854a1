package service

import (
	"fmt"

	"github.com/m-ahsan-nazer/cacophony-api/constant"
	"github.com/m-ahsan-nazer/cacophony-api/entities"
)

// StagePipelines maps each recording type to its ordered stage list. The
// last entry is the terminal marker.
type StagePipelines map[constant.RecordingType][]constant.ProcessingState

func DefaultPipelines() StagePipelines {
	return StagePipelines{
		constant.RecordingTypeThermalRaw: {
			constant.ProcessingStateGetMetadata,
			constant.ProcessingStateToMp4,
			constant.ProcessingStateFinished,
		},
		constant.RecordingTypeAudio: {
			constant.ProcessingStateToMp3,
			constant.ProcessingStateFinished,
		},
	}
}

// StateMachine answers pure stage lookups over an immutable pipeline
// configuration. It holds no mutable state and performs no I/O.
type StateMachine struct {
	pipelines StagePipelines
}

func NewStateMachine(pipelines StagePipelines) *StateMachine {
	copied := make(StagePipelines, len(pipelines))
	for typ, stages := range pipelines {
		copied[typ] = append([]constant.ProcessingState(nil), stages...)
	}
	return &StateMachine{pipelines: copied}
}

func (m *StateMachine) InitialStage(typ constant.RecordingType) (constant.ProcessingState, error) {
	stages, ok := m.pipelines[typ]
	if !ok || len(stages) == 0 {
		return "", fmt.Errorf("%w: no pipeline for type %q", entities.ErrInvalidState, typ)
	}
	return stages[0], nil
}

func (m *StateMachine) NextStage(typ constant.RecordingType, current constant.ProcessingState) (constant.ProcessingState, error) {
	stages, ok := m.pipelines[typ]
	if !ok {
		return "", fmt.Errorf("%w: no pipeline for type %q", entities.ErrInvalidState, typ)
	}
	for i, stage := range stages {
		if stage != current {
			continue
		}
		if i == len(stages)-1 {
			return "", fmt.Errorf("%w: stage %q is terminal for type %q", entities.ErrInvalidState, current, typ)
		}
		return stages[i+1], nil
	}
	return "", fmt.Errorf("%w: stage %q not in pipeline for type %q", entities.ErrInvalidState, current, typ)
}

func (m *StateMachine) IsTerminal(typ constant.RecordingType, stage constant.ProcessingState) bool {
	stages, ok := m.pipelines[typ]
	if !ok || len(stages) == 0 {
		return false
	}
	return stages[len(stages)-1] == stage
}
