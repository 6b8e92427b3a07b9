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

package log

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*Logger, context.CancelFunc) {
	t.Helper()

	logger := NewMockLogger()

	ctx, cancel := context.WithCancel(context.Background())
	logger.Start(ctx)

	t.Cleanup(cancel)
	return logger, cancel
}

func TestSubscribe(t *testing.T) {
	logger, _ := newTestLogger(t)

	feed, cancelFeed := logger.Subscribe()
	defer cancelFeed()

	go logger.Info().Src("export").Job("job1").Msg("test")

	select {
	case entry := <-feed:
		require.Equal(t, LevelInfo, entry.Level)
		require.Equal(t, "export", entry.Src)
		require.Equal(t, "job1", entry.Job)
		require.Equal(t, "test", entry.Msg)
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestMsgf(t *testing.T) {
	logger, _ := newTestLogger(t)

	feed, cancelFeed := logger.Subscribe()
	defer cancelFeed()

	go logger.Warn().Src("render").Msgf("frame %d skipped", 7)

	select {
	case entry := <-feed:
		require.Equal(t, LevelWarning, entry.Level)
		require.Equal(t, "frame 7 skipped", entry.Msg)
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestUnsubscribe(t *testing.T) {
	logger, _ := newTestLogger(t)

	feed, cancelFeed := logger.Subscribe()
	cancelFeed()

	// Feed is closed after unsubscribe.
	_, ok := <-feed
	require.False(t, ok)

	// Logging without subscribers does not block.
	done := make(chan struct{})
	go func() {
		logger.Debug().Msg("nobody listening")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestCheckDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "logs.db")

	wg := &sync.WaitGroup{}

	// Creates the database on first use.
	_, err := NewLogger(dbPath, wg)
	require.NoError(t, err)

	// Accepts an existing database with the right version.
	_, err = NewLogger(dbPath, wg)
	require.NoError(t, err)
}
