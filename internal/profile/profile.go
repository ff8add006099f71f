// Package profile captures CPU and allocation profiles around a proof
// construction, for benchmark and regression comparisons. It mirrors
// gnark's own profile package: runtime/pprof does the capturing, and
// github.com/google/pprof/profile merges samples across phases so a
// caller can compare a first-round profile to a final-round profile
// without losing sample identity.
package profile

import (
	"bytes"
	"runtime/pprof"

	gpprof "github.com/google/pprof/profile"
)

// Phase is one named segment of a larger capture (e.g. "first-round",
// "sumcheck", "final-round").
type Phase struct {
	Name string
	buf  bytes.Buffer
}

// Recorder accumulates per-phase CPU profiles and can merge them into a
// single profile.Profile for inspection or storage.
type Recorder struct {
	phases []*Phase
	active *Phase
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// StartPhase begins CPU profiling for a named phase. Callers must call
// EndPhase before starting another one.
func (r *Recorder) StartPhase(name string) error {
	p := &Phase{Name: name}
	if err := pprof.StartCPUProfile(&p.buf); err != nil {
		return err
	}
	r.active = p
	return nil
}

// EndPhase stops profiling the active phase and stores it.
func (r *Recorder) EndPhase() {
	if r.active == nil {
		return
	}
	pprof.StopCPUProfile()
	r.phases = append(r.phases, r.active)
	r.active = nil
}

// Merged returns a single merged profile across every recorded phase,
// with each phase's samples tagged by a "phase" label so they can be
// told apart after merging.
func (r *Recorder) Merged() (*gpprof.Profile, error) {
	profs := make([]*gpprof.Profile, 0, len(r.phases))
	for _, p := range r.phases {
		parsed, err := gpprof.Parse(bytes.NewReader(p.buf.Bytes()))
		if err != nil {
			return nil, err
		}
		for _, s := range parsed.Sample {
			if s.Label == nil {
				s.Label = map[string][]string{}
			}
			s.Label["phase"] = []string{p.Name}
		}
		profs = append(profs, parsed)
	}
	if len(profs) == 0 {
		return &gpprof.Profile{}, nil
	}
	merged, err := gpprof.Merge(profs)
	if err != nil {
		return nil, err
	}
	return merged, nil
}
