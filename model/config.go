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
package model

type CommandLineArgs struct {
	ConfigFile  string
	SessionFile string
	LogLevel    string
}

// Config is the application-level configuration (patchbay.yaml), loaded
// through viper with defaults applied. The session document lives in its own
// file, see SessionConfig.
type Config struct {
	LogLevel        string `mapstructure:"log_level"`
	SessionFile     string `mapstructure:"session_file"`
	WatchSession    bool   `mapstructure:"watch_session"`
	WatchIntervalMs int    `mapstructure:"watch_interval_ms"`
	StatsIntervalMs int    `mapstructure:"stats_interval_ms"`

	Capture CaptureOptions `mapstructure:"capture"`
}

// CaptureOptions configures the optional WAV capture of an input device.
type CaptureOptions struct {
	Enabled   bool   `mapstructure:"enabled"`
	InputUID  string `mapstructure:"input_uid"`
	Directory string `mapstructure:"directory"`
	BitDepth  int    `mapstructure:"bit_depth"`
}
