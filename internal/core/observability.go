package core

import "time"

// MetricsRecorder receives engine level measurements.
type MetricsRecorder interface {
	CacheLookup(hit bool)
	Calculated(duration time.Duration, err error)
	Instruction(kind InstructionKind)
	ContributorSkipped()
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) CacheLookup(bool)                {}
func (noopMetricsRecorder) Calculated(time.Duration, error) {}
func (noopMetricsRecorder) Instruction(InstructionKind)     {}
func (noopMetricsRecorder) ContributorSkipped()             {}
