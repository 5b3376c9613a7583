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
	"log/slog"
	"path"
	"time"

	"patchbay/audio"
	"patchbay/model"
	"patchbay/reaper"
	"patchbay/shared"
)

func ConfigureTextLogger(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(shared.StockStderr(), &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	shared.HijackLogging()
	shared.EnableSlogLogging()
}

func runEngine(config *model.Config) {
	ConfigureTextLogger(parseLogLevel(config.LogLevel))

	shared.CatchSigint(func() {
		slog.Info("Caught sigint, calling reaper")
		reaper.Reap()
	})

	host, err := audio.NewMalgoHost()
	if err != nil {
		slog.Error("Failed to initialize audio host: " + err.Error())
		return
	}
	reaper.Callback("close audio host", func() { host.Close() })

	engine := audio.NewEngine(host)
	reaper.Callback("stop engine", engine.Stop)

	engine.OnDeviceEvent(func(ev audio.DeviceEvent) {
		slog.Info("device " + ev.Kind.String() + ": " + ev.Name + " (" + ev.UID + ")")
	})

	sessionConfig, err := LoadSessionConfig(config.SessionFile)
	if err != nil {
		slog.Error("Failed to load session file: " + err.Error())
		reaper.Reap()
		return
	}

	if err := ApplySessionConfig(engine, sessionConfig); err != nil {
		slog.Error("Failed to start session: " + err.Error())
		reaper.Reap()
		return
	}

	if config.Capture.Enabled {
		startCapture(engine, config)
	}

	watcher := audio.NewWatcher(host, time.Duration(config.WatchIntervalMs)*time.Millisecond)
	watcher.Start()
	reaper.Callback("stop device watcher", watcher.Stop)

	startEventPump(engine, watcher, sessionConfig)

	startStatistics(engine, config)

	if config.WatchSession {
		watchSessionFile(engine, config.SessionFile)
	}

	// registered last so it runs first on reap, while the route table and
	// its disabled_by_device flags are still live
	reaper.Callback("save session", func() {
		saveCurrentSession(engine, config.SessionFile)
	})

	slog.Info("patchbay running", "session_file", config.SessionFile)

	reaper.Wait()
}

// startEventPump marshals watcher events onto the control domain. Engine
// state only ever changes under the engine's own control lock, which this
// goroutine shares with every command caller.
func startEventPump(engine *audio.Engine, watcher *audio.Watcher, sessionConfig *model.SessionConfig) {
	reaper.Register("device event pump")

	go func() {
		for ev := range watcher.Events() {
			engine.HandleDeviceEvent(ev)

			// reconnect policy: the engine takes no automatic action, the
			// control layer re-offers the persisted routes for that device
			if ev.Kind == audio.DeviceConnected {
				replayRoutesForDevice(engine, sessionConfig, ev.UID)
			}
		}

		reaper.Done("device event pump")
	}()
}

func startCapture(engine *audio.Engine, config *model.Config) {
	uid := config.Capture.InputUID
	if uid == "" {
		slog.Warn("capture enabled but no input_uid configured")
		return
	}

	dir := config.Capture.Directory
	if dir == "" {
		dir = "."
	}

	fileName := time.Now().Format("capture_20060102_150405") + ".wav"

	if err := engine.StartCapture(uid, path.Join(dir, fileName), config.Capture.BitDepth); err != nil {
		slog.Warn("Failed to start capture: " + err.Error())
		return
	}

	reaper.Callback("stop capture", func() {
		if err := engine.StopCapture(uid); err != nil {
			slog.Debug("capture already stopped: " + err.Error())
		}
	})
}
