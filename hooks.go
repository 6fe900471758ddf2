package pcmesh

import (
	"log"
	"time"
)

// Stage names a step of the reconstruction pipeline.
type Stage string

const (
	StageDownsample   Stage = "downsample"
	StageOutliers     Stage = "outlier removal"
	StageRedownsample Stage = "second downsample"
	StageGrid         Stage = "grid sizing"
	StageIndex        Stage = "kd-tree build"
	StageField        Stage = "distance field"
	StageIsoLevel     Stage = "iso-level"
	StageExtract      Stage = "marching cubes"
	StageAssemble     Stage = "mesh assembly"
)

// Hooks are optional observers invoked at stage boundaries.
// Both fields may be nil. A nil *Hooks is valid and does nothing.
type Hooks struct {
	Start func(s Stage)
	End   func(s Stage, elapsed time.Duration, err error)
}

// Run calls fn between the Start and End hooks and returns its error.
func (h *Hooks) Run(s Stage, fn func() error) error {
	if h != nil && h.Start != nil {
		h.Start(s)
	}
	start := time.Now()
	err := fn()
	if h != nil && h.End != nil {
		h.End(s, time.Since(start), err)
	}
	return err
}

// LogHooks returns hooks that print stage progress and timing to l.
func LogHooks(l *log.Logger) *Hooks {
	return &Hooks{
		Start: func(s Stage) {
			l.Printf("%s...", s)
		},
		End: func(s Stage, elapsed time.Duration, err error) {
			if err != nil {
				l.Printf("%s failed after %.2f seconds: %v", s, elapsed.Seconds(), err)
				return
			}
			l.Printf("%s complete in %.2f seconds.", s, elapsed.Seconds())
		},
	}
}
