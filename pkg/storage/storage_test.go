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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConfigEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		env, err := NewConfigEnv("/home/user/configs/env.yaml", []byte(""))
		require.NoError(t, err)

		require.Equal(t, "/usr/bin/ffmpeg", env.FFmpegBin)
		require.Equal(t, "/usr/bin/ffprobe", env.FFprobeBin)
		require.Equal(t, "/home/user/configs", env.ConfigDir)
		require.Equal(t, "/home/user", env.HomeDir)
		require.Equal(t, "/home/user/storage", env.StorageDir)
	})

	t.Run("values", func(t *testing.T) {
		envYAML := []byte(`
ffmpegBin: /opt/ffmpeg/ffmpeg
ffprobeBin: /opt/ffmpeg/ffprobe
storageDir: /data/exports
tempDir: /data/tmp
`)
		env, err := NewConfigEnv("/home/user/configs/env.yaml", envYAML)
		require.NoError(t, err)

		require.Equal(t, "/opt/ffmpeg/ffmpeg", env.FFmpegBin)
		require.Equal(t, "/opt/ffmpeg/ffprobe", env.FFprobeBin)
		require.Equal(t, "/data/exports", env.StorageDir)
		require.Equal(t, "/data/tmp", env.TempDir)
	})

	t.Run("relativePath", func(t *testing.T) {
		_, err := NewConfigEnv("/configs/env.yaml", []byte("ffmpegBin: ffmpeg"))
		require.Error(t, err)
	})

	t.Run("badYaml", func(t *testing.T) {
		_, err := NewConfigEnv("/configs/env.yaml", []byte("\t:"))
		require.Error(t, err)
	})
}

func TestFileSaver(t *testing.T) {
	dir := t.TempDir()
	saver := &FileSaver{Dir: filepath.Join(dir, "out"), FastStart: true}

	require.True(t, saver.FastStartInMemory())

	location, err := saver.SaveBuffer("export.mp4", []byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "out", "export.mp4"), location)

	buf, err := os.ReadFile(location)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, buf)
}
