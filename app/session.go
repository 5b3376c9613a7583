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
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"patchbay/audio"
	"patchbay/model"
	"patchbay/reaper"
	"patchbay/util"
)

// LoadSessionConfig reads the persisted session document. The engine never
// sees this file; this layer owns the round trip.
func LoadSessionConfig(fileName string) (*model.SessionConfig, error) {
	sessionConfig := &model.SessionConfig{}

	if err := util.ReadYamlFile(sessionConfig, fileName); err != nil {
		return nil, err
	}

	if sessionConfig.SampleRate == 0 {
		sessionConfig.SampleRate = audio.DefaultSampleRate
	}
	if sessionConfig.BufferFrames == 0 {
		sessionConfig.BufferFrames = audio.DefaultBufferFrames
	}

	return sessionConfig, nil
}

// SaveSessionConfig writes the session document back out.
func SaveSessionConfig(sessionConfig *model.SessionConfig, filePath string) error {
	return util.WriteYamlFile(sessionConfig, filePath)
}

// ApplySessionConfig starts a session per the document and replays its
// routes. Individual route failures are logged and skipped so one unplugged
// device doesn't take the whole session down.
func ApplySessionConfig(engine *audio.Engine, sessionConfig *model.SessionConfig) error {
	_, err := engine.Start(sessionConfig.OutputDeviceUID, sessionConfig.SampleRate, sessionConfig.BufferFrames)
	if err != nil {
		return err
	}

	for i := range sessionConfig.Routes {
		routeConfig := &sessionConfig.Routes[i]

		if err := engine.AddRoute(routeFromConfig(routeConfig)); err != nil {
			slog.Warn("Skipping route '" + routeConfig.ID + "': " + err.Error())
		}
	}

	return nil
}

// ExportSessionConfig captures the engine's current session and route table
// as a document that round-trips through SaveSessionConfig.
func ExportSessionConfig(engine *audio.Engine) (*model.SessionConfig, bool) {
	session, active := engine.Session()
	if !active {
		return nil, false
	}

	routes := engine.Routes()

	sessionConfig := &model.SessionConfig{
		OutputDeviceUID: session.OutputDeviceUID,
		SampleRate:      session.SampleRate,
		BufferFrames:    session.BufferFrames,
		Routes:          make([]model.RouteConfig, 0, len(routes)),
	}

	for _, status := range routes {
		sessionConfig.Routes = append(sessionConfig.Routes, routeToConfig(status))
	}

	return sessionConfig, true
}

// saveCurrentSession writes the engine's live state back over the session
// file, including which routes a device disconnect disabled. Routes replayed
// from the file come back user-disabled; the flag is not fed back into the
// engine, so a later save no longer carries it.
func saveCurrentSession(engine *audio.Engine, fileName string) {
	sessionConfig, active := ExportSessionConfig(engine)
	if !active {
		return
	}

	filePath, err := util.ResolveConfigFilePath(fileName)
	if err != nil {
		slog.Warn("Not saving session: " + err.Error())
		return
	}

	if err := SaveSessionConfig(sessionConfig, filePath); err != nil {
		slog.Warn("Failed to save session: " + err.Error())
		return
	}

	slog.Info("session saved", "file", filePath)
}

// replayRoutesForDevice re-offers persisted routes that reference a device
// which just came back. The engine accepts or rejects each one on its own
// merits.
func replayRoutesForDevice(engine *audio.Engine, sessionConfig *model.SessionConfig, uid string) {
	for i := range sessionConfig.Routes {
		routeConfig := &sessionConfig.Routes[i]

		if routeConfig.InDeviceUID != uid && routeConfig.OutDeviceUID != uid {
			continue
		}

		if err := engine.AddRoute(routeFromConfig(routeConfig)); err != nil {
			slog.Warn("Failed to restore route '" + routeConfig.ID + "': " + err.Error())
		} else {
			slog.Info("route restored after reconnect", "route", routeConfig.ID, "device", uid)
		}
	}
}

// watchSessionFile reloads and re-applies the session document whenever it
// changes on disk.
func watchSessionFile(engine *audio.Engine, fileName string) {
	filePath, err := util.ResolveConfigFilePath(fileName)
	if err != nil {
		slog.Warn("Not watching session file: " + err.Error())
		return
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("Failed to create session file watcher: " + err.Error())
		return
	}

	// watch the directory; editors replace files rather than write in place
	if err := fsWatcher.Add(filepath.Dir(filePath)); err != nil {
		slog.Warn("Failed to watch session file directory: " + err.Error())
		fsWatcher.Close()
		return
	}

	reaper.Register("session file watcher")
	reaper.Callback("close session file watcher", func() { fsWatcher.Close() })

	go func() {
		defer reaper.Done("session file watcher")

		last, _ := LoadSessionConfig(fileName)

		for {
			select {
			case event, ok := <-fsWatcher.Events:
				if !ok {
					return
				}

				if event.Name != filePath || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				// editors fire several events per save, let the dust settle
				time.Sleep(100 * time.Millisecond)

				sessionConfig, err := LoadSessionConfig(fileName)
				if err != nil {
					slog.Warn("Ignoring unreadable session file: " + err.Error())
					continue
				}

				if last != nil && sessionConfig.Equal(last) {
					continue
				}
				last = sessionConfig

				slog.Info("session file changed, reloading")

				if err := ApplySessionConfig(engine, sessionConfig); err != nil {
					slog.Error("Failed to apply reloaded session: " + err.Error())
				}

			case watchErr, ok := <-fsWatcher.Errors:
				if !ok {
					return
				}

				slog.Warn("Session file watcher error: " + watchErr.Error())
			}
		}
	}()
}

func routeFromConfig(routeConfig *model.RouteConfig) audio.Route {
	gain := routeConfig.GainValue()
	enabled := routeConfig.EnabledValue()

	return audio.Route{
		ID:           routeConfig.ID,
		InDeviceUID:  routeConfig.InDeviceUID,
		OutDeviceUID: routeConfig.OutDeviceUID,
		InLeft:       routeConfig.InLeft,
		InRight:      routeConfig.InRight,
		OutLeft:      routeConfig.OutLeft,
		OutRight:     routeConfig.OutRight,
		Gain:         gain,
		Enabled:      enabled,
	}
}

func routeToConfig(status audio.RouteStatus) model.RouteConfig {
	gain := status.Gain
	enabled := status.State == audio.RouteEnabled

	return model.RouteConfig{
		ID:               status.ID,
		InDeviceUID:      status.InDeviceUID,
		OutDeviceUID:     status.OutDeviceUID,
		InLeft:           status.InLeft,
		InRight:          status.InRight,
		OutLeft:          status.OutLeft,
		OutRight:         status.OutRight,
		Gain:             &gain,
		Enabled:          &enabled,
		DisabledByDevice: status.State == audio.RouteDisabledByDevice,
	}
}
