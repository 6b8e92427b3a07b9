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
	"fmt"
	"image"
	"path/filepath"
	"time"

	"vexport/pkg/audio"
	"vexport/pkg/effect"
	"vexport/pkg/encode"
	"vexport/pkg/log"
	"vexport/pkg/media"
	"vexport/pkg/progress"
	"vexport/pkg/render"
	"vexport/pkg/storage"
	"vexport/pkg/timeline"
	"vexport/pkg/video/aac"
	"vexport/pkg/video/mp4muxer"

	"github.com/google/uuid"
)

// Terminal errors.
var (
	// ErrCancelled is the distinct cancellation result.
	ErrCancelled = errors.New("export cancelled")

	// ErrEncoder wraps fatal encoder failures.
	ErrEncoder = errors.New("encoder failure")
)

// Result describes a finished export.
type Result struct {
	JobID    string
	Location string
	Frames   int
	Elapsed  time.Duration
}

// videoEncoder is the encoder surface the driver needs, satisfied
// by encode.VideoEncoder and by test fakes.
type videoEncoder interface {
	Encode(ctx context.Context, frame *image.RGBA) error
	Flush(ctx context.Context) ([]encode.EncodedSample, []byte, []byte, error)
	Close()
}

// Exporter runs export jobs. The raster surface, the media cache
// and the encoder are owned by the driver's goroutine, frames are
// rendered and fed strictly sequentially.
type Exporter struct {
	env    *storage.ConfigEnv
	logger *log.Logger
	bus    *progress.Bus

	// Pipeline runs over the surface after each frame's composition.
	Pipeline *effect.Pipeline

	// Hooks, replaced by tests.
	newVideoEncoder func(settings timeline.Settings) (videoEncoder, error)
	encodeAudio     func(ctx context.Context, mixed *audio.Buffer, settings timeline.Settings) ([][]byte, *aac.MPEG4AudioConfig, error)
	decodeAudio     audio.DecodeFunc
	probe           media.ProbeFunc

	probeCache *media.ProbeCache
}

// New returns an exporter using the environment's ffmpeg binaries.
func New(env *storage.ConfigEnv, logger *log.Logger, bus *progress.Bus) *Exporter {
	prober := media.NewProber(env.FFprobeBin)
	decoder := audio.NewDecoder(env.FFmpegBin, prober.Probe)

	e := &Exporter{
		env:      env,
		logger:   logger,
		bus:      bus,
		Pipeline: effect.NewPipeline(logger, ""),

		probe:       prober.Probe,
		decodeAudio: decoder.Decode,
	}

	// Memoize probe results across runs so repeated exports of the
	// same library skip ffprobe.
	if env.StorageDir != "" {
		probeCache, err := media.NewProbeCache(
			filepath.Join(env.StorageDir, "probe.db"), prober.Probe)
		if err == nil {
			e.probe = probeCache.Probe
			e.probeCache = probeCache
		} else if logger != nil {
			logger.Warn().Src("export").Msgf("probe cache disabled: %v", err)
		}
	}
	e.newVideoEncoder = func(settings timeline.Settings) (videoEncoder, error) {
		return encode.NewVideoEncoder(env.FFmpegBin, settings)
	}
	e.encodeAudio = func(ctx context.Context, mixed *audio.Buffer, settings timeline.Settings) ([][]byte, *aac.MPEG4AudioConfig, error) {
		return encode.EncodeAudio(ctx, env.FFmpegBin, mixed, settings)
	}
	return e
}

// Close releases resources held across runs.
func (e *Exporter) Close() {
	if e.probeCache != nil {
		e.probeCache.Close() //nolint:errcheck
	}
}

// progressInterval is how often processing events are emitted.
const progressInterval = 10

// Export runs one job to completion, the finished MP4 is handed to
// the byte-sink. The model must not be mutated during the run.
func (e *Exporter) Export( //nolint:funlen
	ctx context.Context,
	model *timeline.Model,
	settings timeline.Settings,
	sink storage.ByteSink,
) (*Result, error) {
	jobID := uuid.New().String()
	start := time.Now()

	totalFrames := settings.TotalFrames(model.Duration) + 1

	publish := func(event progress.Event) {
		event.JobID = jobID
		event.TotalFrames = totalFrames
		e.bus.Publish(event)
	}

	fail := func(stage progress.Stage, err error) (*Result, error) {
		publish(progress.Event{Stage: stage, Error: err.Error()})
		return nil, err
	}

	publish(progress.Event{Stage: progress.StageInitializing})

	if errs := timeline.Validate(model, settings); errs != nil {
		return fail(progress.StageError, errs)
	}

	fetcher := media.NewFetcher(filepath.Join(e.env.TempDir, jobID))
	cache := media.NewCache(e.env.FFmpegBin, e.probe, fetcher, e.logger, jobID)
	defer cache.Close()

	renderer := render.NewFrameRenderer(model, settings, cache, e.logger, jobID)

	encoder, err := e.newVideoEncoder(settings)
	if err != nil {
		return fail(progress.StageError, fmt.Errorf("%w: %v", ErrEncoder, err))
	}

	lastFrame := totalFrames - 1 // Frame indices run 0..N inclusive.
	for k := 0; k <= lastFrame; k++ {
		if err := ctx.Err(); err != nil {
			return e.cancelled(publish, encoder)
		}

		t := settings.FrameTime(k)

		frame, err := renderer.RenderFrame(ctx, t)
		if err != nil {
			if ctx.Err() != nil {
				return e.cancelled(publish, encoder)
			}
			e.warnf(jobID, "frame %d failed, using fallback: %v", k, err)
			frame = renderer.FallbackFrame()
		}

		e.Pipeline.Run(renderer.Surface(), settings, t)

		if err := encoder.Encode(ctx, frame); err != nil {
			if ctx.Err() != nil {
				return e.cancelled(publish, encoder)
			}
			encoder.Close()
			return fail(progress.StageError, fmt.Errorf("%w: %v", ErrEncoder, err))
		}

		if k%progressInterval == 0 || k == lastFrame {
			elapsed := time.Since(start).Seconds()
			event := progress.Event{
				Stage:        progress.StageProcessing,
				CurrentFrame: k,
				Percentage:   100 * float64(k) / float64(lastFrame),
			}
			if k > 0 && elapsed > 0 {
				event.RenderSpeed = float64(k) / elapsed
				event.EstimatedTimeRemaining = elapsed / float64(k) * float64(lastFrame-k)
			}
			publish(event)
		}
	}

	samples, sps, pps, err := encoder.Flush(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return e.cancelled(publish, encoder)
		}
		return fail(progress.StageError, fmt.Errorf("%w: %v", ErrEncoder, err))
	}

	if len(samples) != totalFrames {
		// Finalize anyway, players tolerate a short tail.
		e.errorf(jobID, "encoded chunk count %d does not match expected %d",
			len(samples), totalFrames)
	}

	publish(progress.Event{
		Stage:        progress.StageFinalizing,
		CurrentFrame: lastFrame,
		Percentage:   100,
	})

	audioAUs, audioConfig, err := e.mixAndEncodeAudio(ctx, model, settings, cache, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return e.cancelled(publish, encoder)
		}
		return fail(progress.StageError, err)
	}

	width, height := settings.EffectiveSize()
	muxer := mp4muxer.NewMuxer(width, height, sps, pps, audioConfig, settings.AudioBitrate)

	for i, sample := range samples {
		muxer.WriteVideoSample(mp4muxer.VideoSample{
			AVCC:         sample.AVCC,
			PTS:          settings.FramePTS(i),
			DTS:          settings.FramePTS(i),
			Duration:     settings.FrameDuration(),
			IsSyncSample: sample.IsIDR,
		})
	}
	for _, au := range audioAUs {
		muxer.WriteAudioSample(au)
	}

	buf, err := muxer.Marshal(sink.FastStartInMemory())
	if err != nil {
		return fail(progress.StageError, fmt.Errorf("mux: %w", err))
	}

	location, err := sink.SaveBuffer(settings.FileName, buf)
	if err != nil {
		return fail(progress.StageError, fmt.Errorf("save: %w", err))
	}

	publish(progress.Event{
		Stage:        progress.StageComplete,
		CurrentFrame: lastFrame,
		Percentage:   100,
	})

	return &Result{
		JobID:    jobID,
		Location: location,
		Frames:   len(samples),
		Elapsed:  time.Since(start),
	}, nil
}

func (e *Exporter) cancelled(publish func(progress.Event), encoder videoEncoder) (*Result, error) {
	encoder.Close()
	publish(progress.Event{Stage: progress.StageCancelled, Error: ErrCancelled.Error()})
	return nil, ErrCancelled
}

// mixAndEncodeAudio builds the single PCM bed and encodes it in one
// shot. A nil config means the file has no audio track.
func (e *Exporter) mixAndEncodeAudio(
	ctx context.Context,
	model *timeline.Model,
	settings timeline.Settings,
	cache *media.Cache,
	jobID string,
) ([][]byte, *aac.MPEG4AudioConfig, error) {
	elements := audioBearingElements(model)
	if len(elements) == 0 {
		return nil, nil, nil
	}

	mixer := audio.NewMixer(model.Duration, settings.SampleRate, settings.Channels)

	mixed := false
	for _, element := range elements {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		path, err := cache.Path(ctx, element.MediaID, element.Source)
		if err != nil {
			continue // Already logged and excluded.
		}

		buf, err := e.decodeAudio(ctx, path)
		if err != nil {
			if errors.Is(err, audio.ErrNoAudioStream) {
				continue
			}
			if ctx.Err() != nil {
				return nil, nil, err
			}
			e.warnf(jobID, "audio for %q skipped: %v", element.MediaID, err)
			continue
		}

		mixer.Add(buf, element.StartTime, element.TrimStart, element.TrimEnd)
		mixed = true
	}

	if !mixed {
		return nil, nil, nil
	}

	aus, config, err := e.encodeAudio(ctx, mixer.Output(), settings)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEncoder, err)
	}
	return aus, config, nil
}

// audioBearingElements collects media elements that contribute to
// the mix, audio clips and video soundtracks on non-muted tracks.
func audioBearingElements(model *timeline.Model) []*timeline.MediaElement {
	var elements []*timeline.MediaElement
	for _, track := range model.Tracks {
		if track.Muted {
			continue
		}
		for _, element := range track.Elements {
			mediaElement, ok := element.(*timeline.MediaElement)
			if !ok {
				continue
			}
			if mediaElement.Kind == timeline.MediaAudio ||
				mediaElement.Kind == timeline.MediaVideo {
				elements = append(elements, mediaElement)
			}
		}
	}
	return elements
}

func (e *Exporter) warnf(jobID, format string, v ...interface{}) {
	if e.logger != nil {
		e.logger.Warn().Src("export").Job(jobID).Msgf(format, v...)
	}
}

func (e *Exporter) errorf(jobID, format string, v ...interface{}) {
	if e.logger != nil {
		e.logger.Error().Src("export").Job(jobID).Msgf(format, v...)
	}
}
