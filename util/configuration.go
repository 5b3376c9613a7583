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
package util

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResolveConfigFilePath looks for the named file in the usual places: an
// absolute path as-is, then next to the executable, then the working
// directory, then ~/.config/patchbay.
func ResolveConfigFilePath(fileName string) (string, error) {
	if path.IsAbs(fileName) {
		return fileName, nil
	}

	if strings.HasPrefix(fileName, "~/") {
		testFilePath, err := ResolveHomeDirPath(fileName)
		if err != nil {
			return "", err
		}

		if FileExists(testFilePath) {
			return testFilePath, nil
		}

		return "", errors.New("no yaml file found: " + fileName)
	}

	// check path where executable lives
	binPath, _ := os.Executable()
	binDir := filepath.Dir(binPath)
	sidecarPath := path.Join(binDir, fileName)

	if FileExists(sidecarPath) {
		return sidecarPath, nil
	}

	// check working directory
	cwd, _ := os.Getwd()
	cwdSidecarPath := path.Join(cwd, fileName)

	if FileExists(cwdSidecarPath) {
		return cwdSidecarPath, nil
	}

	// check user config directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not find user home dir: " + err.Error())
	}

	homeDotConfigPath := path.Join(homeDir, ".config", "patchbay", fileName)

	if FileExists(homeDotConfigPath) {
		return homeDotConfigPath, nil
	}

	return "", errors.New("no yaml file found: " + fileName)
}

func ReadYamlFile(cfg interface{}, fileName string) error {
	filePath, err := ResolveConfigFilePath(fileName)
	if err != nil {
		return err
	}

	yamlBytes, err := os.ReadFile(filePath)
	if err != nil {
		return errors.New("failed to read yaml file: " + err.Error())
	}

	if err := yaml.Unmarshal(yamlBytes, cfg); err != nil {
		return errors.New("failed to parse yaml file: " + err.Error())
	}

	return nil
}

func WriteYamlFile(cfg interface{}, filePath string) error {
	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.New("failed to serialize yaml: " + err.Error())
	}

	if err := os.WriteFile(filePath, yamlBytes, 0644); err != nil {
		return errors.New("failed to write yaml file: " + err.Error())
	}

	return nil
}
