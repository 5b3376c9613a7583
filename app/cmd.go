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
	"os"

	"github.com/spf13/cobra"

	"patchbay/audio"
	"patchbay/model"
)

var (
	// arguments
	argConfigFile  string
	argSessionFile string
	argLogLevel    string

	rootCmd = &cobra.Command{
		Use:   "patchbay",
		Short: "Route audio between hardware devices",

		Run: func(cmd *cobra.Command, args []string) {
			config := ReadConfig(&model.CommandLineArgs{
				ConfigFile:  argConfigFile,
				SessionFile: argSessionFile,
				LogLevel:    argLogLevel,
			})

			runEngine(config)
		},
	}

	devicesCmd = &cobra.Command{
		Use:   "devices",
		Short: "List audio devices known to the host",

		Run: func(cmd *cobra.Command, args []string) {
			listDevices()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&argConfigFile, "config", "c", "", "Name or path of the config file to load")
	rootCmd.PersistentFlags().StringVarP(&argSessionFile, "session", "s", "", "Name or path of the session file to load")
	rootCmd.PersistentFlags().StringVarP(&argLogLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(devicesCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()

	if err != nil {
		os.Exit(1)
	}
}

func listDevices() {
	host, err := audio.NewMalgoHost()
	if err != nil {
		slog.Error("Failed to initialize audio host: " + err.Error())
		os.Exit(1)
	}
	defer host.Close()

	devices, err := host.Devices()
	if err != nil {
		slog.Error("Failed to enumerate devices: " + err.Error())
		os.Exit(1)
	}

	defaultIn, defaultOut, _ := host.DefaultDevices()

	for _, dev := range devices {
		marker := "  "
		if dev.UID == defaultIn || dev.UID == defaultOut {
			marker = "* "
		}

		fmt.Printf("%s%-40s  in:%2d  out:%2d  %d-%d Hz\n      uid: %s\n",
			marker, dev.Name, dev.InputChannels, dev.OutputChannels,
			dev.MinSampleRate, dev.MaxSampleRate, dev.UID)
	}
}
