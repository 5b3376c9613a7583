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
	"os"
	"path"

	"github.com/spf13/viper"

	"patchbay/model"
)

const (
	configName = "patchbay"
	configType = "yaml"

	configKeyLogLevel        = "log_level"
	configKeySessionFile     = "session_file"
	configKeyWatchSession    = "watch_session"
	configKeyWatchIntervalMs = "watch_interval_ms"
	configKeyStatsIntervalMs = "stats_interval_ms"
	configKeyCaptureBitDepth = "capture.bit_depth"
)

// ReadConfig loads patchbay.yaml through viper, with sane defaults when the
// file or individual keys are absent, then applies command line overrides.
func ReadConfig(args *model.CommandLineArgs) *model.Config {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(".")

	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(path.Join(homeDir, ".config", "patchbay"))
	}

	v.SetDefault(configKeyLogLevel, "info")
	v.SetDefault(configKeySessionFile, "session.yaml")
	v.SetDefault(configKeyWatchSession, true)
	v.SetDefault(configKeyWatchIntervalMs, 1000)
	v.SetDefault(configKeyStatsIntervalMs, 5000)
	v.SetDefault(configKeyCaptureBitDepth, 24)

	if args.ConfigFile != "" {
		v.SetConfigFile(args.ConfigFile)
	}

	if err := v.ReadInConfig(); err != nil {
		// defaults only; a missing config file is a supported setup
		slog.Debug("no config file loaded: " + err.Error())
	}

	config := &model.Config{}

	if err := v.Unmarshal(config); err != nil {
		slog.Error("Invalid configuration: " + err.Error())
		os.Exit(1)
	}

	if args.SessionFile != "" {
		config.SessionFile = args.SessionFile
	}

	if args.LogLevel != "" {
		config.LogLevel = args.LogLevel
	}

	return config
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
