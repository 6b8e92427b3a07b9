// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// ConfigEnv stores system configuration.
type ConfigEnv struct {
	FFmpegBin  string `yaml:"ffmpegBin"`
	FFprobeBin string `yaml:"ffprobeBin"`

	StorageDir string `yaml:"storageDir"`
	TempDir    string `yaml:"tempDir"`

	HomeDir   string `yaml:"homeDir"`
	ConfigDir string
}

// NewConfigEnv return new environment configuration.
func NewConfigEnv(envPath string, envYAML []byte) (*ConfigEnv, error) {
	var env ConfigEnv

	if err := yaml.Unmarshal(envYAML, &env); err != nil {
		return nil, fmt.Errorf("could not unmarshal env.yaml: %w", err)
	}

	env.ConfigDir = filepath.Dir(envPath)

	if env.FFmpegBin == "" {
		env.FFmpegBin = "/usr/bin/ffmpeg"
	}
	if env.FFprobeBin == "" {
		env.FFprobeBin = "/usr/bin/ffprobe"
	}
	if env.HomeDir == "" {
		env.HomeDir = filepath.Dir(env.ConfigDir)
	}
	if env.StorageDir == "" {
		env.StorageDir = env.HomeDir + "/storage"
	}
	if env.TempDir == "" {
		env.TempDir = filepath.Join(os.TempDir(), "vexport")
	}

	if !filepath.IsAbs(env.FFmpegBin) {
		return nil, fmt.Errorf("ffmpegBin '%v' is not a absolute path", env.FFmpegBin)
	}
	if !filepath.IsAbs(env.FFprobeBin) {
		return nil, fmt.Errorf("ffprobeBin '%v' is not a absolute path", env.FFprobeBin)
	}
	if !filepath.IsAbs(env.HomeDir) {
		return nil, fmt.Errorf("homeDir '%v' is not a absolute path", env.HomeDir)
	}
	if !filepath.IsAbs(env.StorageDir) {
		return nil, fmt.Errorf("storageDir '%v' is not a absolute path", env.StorageDir)
	}
	if !filepath.IsAbs(env.TempDir) {
		return nil, fmt.Errorf("tempDir '%v' is not a absolute path", env.TempDir)
	}

	return &env, nil
}

// PrepareEnvironment prepares directories.
func (env *ConfigEnv) PrepareEnvironment() error {
	if err := os.MkdirAll(env.StorageDir, 0o700); err != nil && !os.IsExist(err) {
		return fmt.Errorf("could not create storage directory: %v: %w", env.StorageDir, err)
	}
	if err := os.MkdirAll(env.TempDir, 0o700); err != nil && !os.IsExist(err) {
		return fmt.Errorf("could not create temp directory: %v: %w", env.TempDir, err)
	}
	return nil
}
