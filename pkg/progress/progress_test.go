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

package progress

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestBusPublish(t *testing.T) {
	bus := NewBus()

	feed, cancel := bus.Subscribe(4)
	defer cancel()

	bus.Publish(Event{Stage: StageInitializing})
	bus.Publish(Event{Stage: StageProcessing, CurrentFrame: 10, Percentage: 50})

	event := <-feed
	require.Equal(t, StageInitializing, event.Stage)

	event = <-feed
	require.Equal(t, StageProcessing, event.Stage)
	require.Equal(t, 10, event.CurrentFrame)
	require.Equal(t, 50.0, event.Percentage)
}

// A full subscriber drops events instead of blocking the driver.
func TestBusSlowConsumer(t *testing.T) {
	bus := NewBus()

	feed, cancel := bus.Subscribe(1)
	defer cancel()

	// None of the publishes blocks despite the single-slot buffer.
	bus.Publish(Event{CurrentFrame: 1})
	bus.Publish(Event{CurrentFrame: 2})
	bus.Publish(Event{CurrentFrame: 3})

	event := <-feed
	require.Equal(t, 1, event.CurrentFrame)
	require.Empty(t, feed)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	feed, cancel := bus.Subscribe(1)
	cancel()
	cancel() // Double cancel is fine.

	_, ok := <-feed
	require.False(t, ok)

	// Publishing without subscribers is a no-op.
	bus.Publish(Event{})
}

func TestHandler(t *testing.T) {
	bus := NewBus()

	server := httptest.NewServer(Handler(bus))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The server subscribes after the handshake, keep publishing
	// until the event comes back.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				bus.Publish(Event{JobID: "job1", Stage: StageProcessing, Percentage: 25})
				time.Sleep(10 * time.Millisecond)
			}
		}
	}()

	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, "job1", event.JobID)
	require.Equal(t, StageProcessing, event.Stage)
	require.Equal(t, 25.0, event.Percentage)
}
