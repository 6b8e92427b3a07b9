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

package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"time"
)

// Decoder timeouts.
const (
	SeekTimeout = 1000 * time.Millisecond

	// Forward-decoding this far is cheaper than a fresh seek.
	forwardWindow = 1.0 // Seconds.
)

// ErrSeekTimeout is returned when a seek exceeds SeekTimeout. The
// element should be skipped for the frame, not the whole run.
var ErrSeekTimeout = errors.New("seek timed out")

// VideoDecoder extracts frames from a single video file. It keeps
// a long-lived ffmpeg process decoding forward and only restarts it
// on backward or far-forward seeks. A decoder must not be shared
// between frames rendered in parallel.
type VideoDecoder struct {
	ffmpegBin string
	path      string
	info      *Info

	cmd    *exec.Cmd
	stdout io.ReadCloser

	frame    *image.RGBA
	framePTS float64
	hasFrame bool

	seekTimeout time.Duration
}

// NewVideoDecoder returns a decoder for the probed file.
func NewVideoDecoder(ffmpegBin string, path string, info *Info) *VideoDecoder {
	return &VideoDecoder{
		ffmpegBin:   ffmpegBin,
		path:        path,
		info:        info,
		seekTimeout: SeekTimeout,
	}
}

func (d *VideoDecoder) frameDuration() float64 {
	if d.info.FPS <= 0 {
		return 1.0 / 30
	}
	return 1.0 / d.info.FPS
}

// FrameAt returns the decoded frame whose presentation interval
// covers t, in the source's own time base. outFramePeriod is the
// duration of one output frame, 1/fps_out.
//
// If the current frame's PTS is within one output-frame period of t
// it is reused. A short distance ahead is covered by decoding
// forward, anything else restarts the process at the nearest
// keyframe before t.
func (d *VideoDecoder) FrameAt(ctx context.Context, t float64, outFramePeriod float64) (*image.RGBA, error) {
	if t < 0 {
		t = 0
	}
	if d.info.Duration > 0 && t >= d.info.Duration {
		t = d.info.Duration - d.frameDuration()
		if t < 0 {
			t = 0
		}
	}

	if d.hasFrame && t >= d.framePTS-outFramePeriod && t <= d.framePTS+outFramePeriod {
		return d.frame, nil
	}

	seekCtx, cancel := context.WithTimeout(ctx, d.seekTimeout)
	defer cancel()

	if d.cmd != nil && d.hasFrame && t > d.framePTS && t-d.framePTS < forwardWindow {
		if err := d.decodeForward(seekCtx, t); err == nil {
			return d.frame, nil
		}
		// Forward decoding failed, fall back to a fresh seek.
	}

	if err := d.seek(seekCtx, t); err != nil {
		if errors.Is(seekCtx.Err(), context.DeadlineExceeded) {
			d.stop()
			return nil, ErrSeekTimeout
		}
		return nil, err
	}
	return d.frame, nil
}

// decodeForward reads frames from the running process until the
// current frame covers t.
func (d *VideoDecoder) decodeForward(ctx context.Context, t float64) error {
	frameDur := d.frameDuration()
	for d.framePTS+frameDur <= t {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.readFrame(ctx); err != nil {
			return err
		}
		d.framePTS += frameDur
	}
	return nil
}

// seek restarts the decoder process at t. FFmpeg seeks to the
// nearest keyframe at or before t and decodes forward internally,
// so the first emitted frame covers t.
func (d *VideoDecoder) seek(ctx context.Context, t float64) error {
	d.stop()

	cmd := exec.Command(d.ffmpegBin,
		"-loglevel", "error",
		"-ss", fmt.Sprintf("%.6f", t),
		"-i", d.path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start decoder: %w", err)
	}

	d.cmd = cmd
	d.stdout = stdout
	d.frame = image.NewRGBA(image.Rect(0, 0, d.info.Width, d.info.Height))
	d.hasFrame = false

	if err := d.readFrame(ctx); err != nil {
		d.stop()
		return fmt.Errorf("read frame at %.3f: %w", t, err)
	}

	d.framePTS = t
	d.hasFrame = true
	return nil
}

// readFrame blocks until a full frame is read, the context is
// canceled, or the stream ends.
func (d *VideoDecoder) readFrame(ctx context.Context) error {
	result := make(chan error, 1)
	go func() {
		_, err := io.ReadFull(d.stdout, d.frame.Pix)
		result <- err
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		// Unblock the reader by killing the process.
		d.stop()
		<-result
		return ctx.Err()
	}
}

// stop kills the decoder process if one is running.
func (d *VideoDecoder) stop() {
	if d.cmd == nil {
		return
	}
	d.cmd.Process.Kill() //nolint:errcheck
	d.cmd.Wait()         //nolint:errcheck
	d.stdout.Close()
	d.cmd = nil
	d.hasFrame = false
}

// Close releases the decoder.
func (d *VideoDecoder) Close() {
	d.stop()
	d.frame = nil
}
