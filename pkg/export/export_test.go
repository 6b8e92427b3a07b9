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

package export

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"vexport/pkg/audio"
	"vexport/pkg/effect"
	"vexport/pkg/encode"
	"vexport/pkg/progress"
	"vexport/pkg/storage"
	"vexport/pkg/timeline"
	"vexport/pkg/video/aac"

	"github.com/stretchr/testify/require"
)

var testSPS = []byte{
	0x67, 0x64, 0x00, 0x28, 0xac, 0xd9, 0x40, 0x78,
	0x02, 0x27, 0xe5, 0x84, 0x00, 0x00, 0x03, 0x00,
	0x04, 0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x60,
	0xc6, 0x58,
}

var testPPS = []byte{0x68, 0xeb, 0xec, 0xb2, 0x2c}

// fakeEncoder emits one sample per submitted frame.
type fakeEncoder struct {
	mu         sync.Mutex
	frames     int
	closed     bool
	delay      time.Duration
	fps        int
	dropLast   int
	encodeErr  error
}

func (f *fakeEncoder) Encode(ctx context.Context, frame *image.RGBA) error {
	if f.encodeErr != nil {
		return f.encodeErr
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.frames++
	f.mu.Unlock()
	return nil
}

func (f *fakeEncoder) Flush(ctx context.Context) ([]encode.EncodedSample, []byte, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := f.frames - f.dropLast
	samples := make([]encode.EncodedSample, 0, count)
	for k := 0; k < count; k++ {
		samples = append(samples, encode.EncodedSample{
			AVCC:  []byte{0, 0, 0, 2, 0x65, byte(k)},
			IsIDR: k%(3*f.fps) == 0,
		})
	}
	return samples, testSPS, testPPS, nil
}

func (f *fakeEncoder) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// fakeSink records saved buffers.
type fakeSink struct {
	mu    sync.Mutex
	saves int
	size  int
}

func (s *fakeSink) FastStartInMemory() bool { return true }

func (s *fakeSink) SaveBuffer(name string, buf []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.size = len(buf)
	return "/exports/" + name, nil
}

func testModel(duration float64) *timeline.Model {
	return &timeline.Model{
		Duration: duration,
		Tracks: []timeline.Track{{
			Kind:    timeline.TrackOverlay,
			Opacity: 1,
			Elements: []timeline.Element{&timeline.OverlayElement{
				ElementBase: timeline.ElementBase{
					ID: "o1", Duration: duration, Opacity: 1,
				},
				Kind:   timeline.OverlayShape,
				Source: "#ff0000",
				X:      32, Y: 32, Width: 16, Height: 16,
			}},
		}},
	}
}

func testExportSettings() timeline.Settings {
	s := timeline.DefaultSettings()
	s.Width = 64
	s.Height = 64
	s.FileName = "out.mp4"
	return s
}

func newTestExporter(enc *fakeEncoder, bus *progress.Bus) *Exporter {
	env := &storage.ConfigEnv{TempDir: "/tmp/vexport-test"}
	e := &Exporter{
		env:      env,
		bus:      bus,
		Pipeline: effect.NewPipeline(nil, ""),

		probe: nil,
	}
	e.newVideoEncoder = func(settings timeline.Settings) (videoEncoder, error) {
		enc.fps = settings.FPS
		return enc, nil
	}
	e.encodeAudio = func(context.Context, *audio.Buffer, timeline.Settings) ([][]byte, *aac.MPEG4AudioConfig, error) {
		panic("audio encoder should not run without audio elements")
	}
	return e
}

// collectEvents drains the bus into a slice until cancel is called.
func collectEvents(bus *progress.Bus) (func() []progress.Event, func()) {
	feed, cancel := bus.Subscribe(4096)

	var mu sync.Mutex
	var events []progress.Event
	done := make(chan struct{})

	go func() {
		defer close(done)
		for event := range feed {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
		}
	}()

	get := func() []progress.Event {
		cancel()
		<-done
		mu.Lock()
		defer mu.Unlock()
		return events
	}
	return get, cancel
}

// A two second export emits exactly N+1 frames and saves one file.
func TestExport(t *testing.T) {
	bus := progress.NewBus()
	enc := &fakeEncoder{}
	e := newTestExporter(enc, bus)

	getEvents, _ := collectEvents(bus)

	sink := &fakeSink{}
	result, err := e.Export(context.Background(), testModel(2), testExportSettings(), sink)
	require.NoError(t, err)

	require.Equal(t, 61, result.Frames)
	require.Equal(t, "/exports/out.mp4", result.Location)
	require.Equal(t, 1, sink.saves)
	require.Greater(t, sink.size, 0)

	events := getEvents()
	require.NotEmpty(t, events)

	// Stages move only forward.
	stageRank := map[progress.Stage]int{
		progress.StageInitializing: 0,
		progress.StageProcessing:   1,
		progress.StageFinalizing:   2,
		progress.StageComplete:     3,
	}
	prevRank := -1
	prevPercent := -1.0
	for _, event := range events {
		rank, known := stageRank[event.Stage]
		require.True(t, known, string(event.Stage))
		require.GreaterOrEqual(t, rank, prevRank)
		prevRank = rank

		require.GreaterOrEqual(t, event.Percentage, prevPercent)
		prevPercent = event.Percentage
	}
	require.Equal(t, progress.StageComplete, events[len(events)-1].Stage)
}

func TestExportValidationError(t *testing.T) {
	bus := progress.NewBus()
	e := newTestExporter(&fakeEncoder{}, bus)

	sink := &fakeSink{}
	_, err := e.Export(context.Background(), &timeline.Model{}, testExportSettings(), sink)

	var verrs timeline.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Equal(t, 0, sink.saves)
}

// Cancellation after the first processing tick yields the distinct
// cancellation result, closes the encoder and delivers nothing.
func TestExportCancellation(t *testing.T) {
	bus := progress.NewBus()
	enc := &fakeEncoder{delay: time.Millisecond}
	e := newTestExporter(enc, bus)

	feed, cancelFeed := bus.Subscribe(4096)
	defer cancelFeed()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &fakeSink{}
	errc := make(chan error, 1)
	go func() {
		_, err := e.Export(ctx, testModel(60), testExportSettings(), sink)
		errc <- err
	}()

	for event := range feed {
		if event.Stage == progress.StageProcessing && event.Percentage > 0 {
			cancel()
			break
		}
	}

	err := <-errc
	require.ErrorIs(t, err, ErrCancelled)

	enc.mu.Lock()
	closed := enc.closed
	enc.mu.Unlock()
	require.True(t, closed)
	require.Equal(t, 0, sink.saves)
}

// A chunk count mismatch is recorded but finalize still proceeds.
func TestExportChunkMismatch(t *testing.T) {
	bus := progress.NewBus()
	enc := &fakeEncoder{dropLast: 1}
	e := newTestExporter(enc, bus)

	sink := &fakeSink{}
	result, err := e.Export(context.Background(), testModel(1), testExportSettings(), sink)
	require.NoError(t, err)
	require.Equal(t, 30, result.Frames)
	require.Equal(t, 1, sink.saves)
}

func TestExportEncoderFailure(t *testing.T) {
	bus := progress.NewBus()
	enc := &fakeEncoder{encodeErr: errors.New("mock encoder failure")}
	e := newTestExporter(enc, bus)

	sink := &fakeSink{}
	_, err := e.Export(context.Background(), testModel(1), testExportSettings(), sink)
	require.ErrorIs(t, err, ErrEncoder)
	require.Equal(t, 0, sink.saves)
}

func TestAudioBearingElements(t *testing.T) {
	model := &timeline.Model{
		Duration: 1,
		Tracks: []timeline.Track{
			{Kind: timeline.TrackMedia, Elements: []timeline.Element{
				&timeline.MediaElement{Kind: timeline.MediaVideo, MediaID: "v"},
				&timeline.MediaElement{Kind: timeline.MediaImage, MediaID: "i"},
			}},
			{Kind: timeline.TrackAudio, Elements: []timeline.Element{
				&timeline.MediaElement{Kind: timeline.MediaAudio, MediaID: "a"},
			}},
			{Kind: timeline.TrackAudio, Muted: true, Elements: []timeline.Element{
				&timeline.MediaElement{Kind: timeline.MediaAudio, MediaID: "muted"},
			}},
		},
	}

	elements := audioBearingElements(model)
	require.Len(t, elements, 2)
	require.Equal(t, "v", elements[0].MediaID)
	require.Equal(t, "a", elements[1].MediaID)
}
