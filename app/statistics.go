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
package app

import (
	"fmt"
	"log/slog"
	"time"

	"patchbay/audio"
	"patchbay/model"
	"patchbay/reaper"
)

func startStatistics(engine *audio.Engine, config *model.Config) {
	interval := config.StatsIntervalMs
	if interval <= 0 {
		interval = 5000
	}

	var lastUnderruns, lastOverruns uint64

	processOnInterval("engine stats", interval, func() {
		stats := engine.Stats()

		slog.Info(fmt.Sprintf(
			"stats: routes=%d taps=%d units=%d fill=%0.2f underruns=%d (+%d) overruns=%d (+%d)",
			stats.Routes, stats.InputTaps, stats.OutputUnits, stats.BufferFill,
			stats.Underruns, stats.Underruns-lastUnderruns,
			stats.Overruns, stats.Overruns-lastOverruns))

		lastUnderruns = stats.Underruns
		lastOverruns = stats.Overruns
	})
}

func processOnInterval(name string, milliseconds int, process func()) {
	reaper.Register(name)

	go func() {
		process()

		t := time.NewTicker(time.Duration(milliseconds) * time.Millisecond)
		defer t.Stop()

		for range t.C {
			if reaper.Reaped() {
				break
			}

			process()
		}

		reaper.Done(name)
	}()
}
