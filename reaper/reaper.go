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

// Package reaper coordinates orderly shutdown: long running goroutines
// register themselves, cleanup callbacks are collected as subsystems come up,
// and Reap() runs the callbacks in reverse order of registration.
package reaper

import (
	"log/slog"
	"slices"
	"sync"
)

var (
	mu                  sync.Mutex
	reapRequested       chan bool
	reaperCallbacks     []callback
	reaperRegistrations []string
	reaperWaitgroup     sync.WaitGroup
)

type callback struct {
	name         string
	callbackFunc func()
}

func init() {
	reapRequested = make(chan bool, 1)
	reaperCallbacks = make([]callback, 0)
	reaperWaitgroup = sync.WaitGroup{}
	reaperRegistrations = make([]string, 0)
}

// Reaped reports whether shutdown has been requested.
func Reaped() bool {
	return len(reapRequested) > 0
}

// Reap requests shutdown and runs every registered callback, newest first.
// Calling it a second time does nothing.
func Reap() {
	if len(reapRequested) == 0 {
		reapRequested <- true

		mu.Lock()
		callbacksReversed := slices.Clone(reaperCallbacks)
		mu.Unlock()

		slices.Reverse(callbacksReversed)

		for _, callback := range callbacksReversed {
			slog.Info("reaper: calling reap callback for '" + callback.name + "'")
			callback.callbackFunc()
		}
	}
}

// Callback schedules a cleanup function to run during Reap.
func Callback(name string, callbackFunc func()) {
	mu.Lock()
	defer mu.Unlock()

	reaperCallbacks = append(reaperCallbacks, callback{
		name:         name,
		callbackFunc: callbackFunc,
	})
}

// Register marks a named goroutine as running; Wait blocks until every
// registration has been matched by a Done.
func Register(name string) {
	mu.Lock()
	defer mu.Unlock()

	if slices.Contains(reaperRegistrations, name) {
		slog.Warn("reaper: already registered '" + name + "'")
		return
	}

	reaperRegistrations = append(reaperRegistrations, name)
	reaperWaitgroup.Add(1)
	slog.Debug("reaper: registered '" + name + "'")
}

func Done(name string) {
	mu.Lock()
	defer mu.Unlock()

	if slices.Contains(reaperRegistrations, name) {
		reaperRegistrations = slices.DeleteFunc(reaperRegistrations, func(test string) bool {
			return test == name
		})

		slog.Debug("reaper: done: '" + name + "'")
		reaperWaitgroup.Done()
	} else {
		slog.Warn("reaper: already done or doesn't exist: '" + name + "'")
	}
}

func Wait() {
	reaperWaitgroup.Wait()
}
