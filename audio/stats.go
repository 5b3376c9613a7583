// =================================================================================
//
//			patchbay - https://www.foxhollow.cc/projects/patchbay/
//
//		 Patchbay is a small audio routing engine that continuously copies
//	  samples between hardware devices with channel mapping and per-route gain
//
//		 Copyright (c) 2026 Steve Cross <flip@foxhollow.cc>
//
//			Licensed under the Apache License, Version 2.0 (the "License");
//			you may not use this file except in compliance with the License.
//			You may obtain a copy of the License at
//
//			     http://www.apache.org/licenses/LICENSE-2.0
//
//			Unless required by applicable law or agreed to in writing, software
//			distributed under the License is distributed on an "AS IS" BASIS,
//			WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//			See the License for the specific language governing permissions and
//			limitations under the License.
//
// =================================================================================
package audio

import (
	"sync/atomic"
)

// sessionStats are advanced from the hardware callbacks, so everything in
// here is a plain atomic. No locks, no allocation.
type sessionStats struct {
	underruns      atomic.Uint64
	overruns       atomic.Uint64
	renders        atomic.Uint64
	framesRendered atomic.Uint64
}

func (s *sessionStats) reset() {
	s.underruns.Store(0)
	s.overruns.Store(0)
	s.renders.Store(0)
	s.framesRendered.Store(0)
}

// StatsSnapshot is a point-in-time view of the engine, safe to hand to any
// collaborator (stats logger, dashboard, metrics exporter).
type StatsSnapshot struct {
	Underruns      uint64
	Overruns       uint64
	Renders        uint64
	FramesRendered uint64

	Routes      int
	InputTaps   int
	OutputUnits int

	// BufferFill is the average reader lag across every active route,
	// normalized to ring capacity. Healthy steady state hovers near the
	// preroll ratio.
	BufferFill float64
}
