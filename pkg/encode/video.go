package encode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"

	"vexport/pkg/timeline"
	"vexport/pkg/video/h264"
)

// DefaultQueueSize bounds the encoder's in-flight frame queue. It
// gives backpressure without starving the encoder.
const DefaultQueueSize = 5

// Encoder errors.
var (
	ErrEncoderClosed      = errors.New("encoder closed")
	ErrUnsupportedEncoder = errors.New("no acceptable H264 encoder configuration")
)

// EncodedSample is one encoded access unit in decode order.
type EncodedSample struct {
	AVCC  []byte
	IsIDR bool
}

// VideoEncoder drives a libx264 process over pipes, raw RGBA frames
// in, Annex-B H264 out. Zero-latency tuning keeps input and output
// in lockstep so the bounded queue can track in-flight frames.
type VideoEncoder struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	// One token per in-flight frame, released as access units come
	// back from the encoder.
	queue chan struct{}

	frameSize int

	// Owned by the reader goroutine until done is closed.
	samples   []EncodedSample
	sps       []byte
	pps       []byte
	readerErr error
	done      chan struct{}
}

// NewVideoEncoder starts the encoder process. A keyframe is forced
// every three seconds. With hardware acceleration declined the
// configuration is fully deterministic, single threaded with
// scene-cut detection disabled.
func NewVideoEncoder(ffmpegBin string, settings timeline.Settings) (*VideoEncoder, error) {
	width, height := settings.EffectiveSize()

	x264Params := "scenecut=0:sliced-threads=0"
	if !settings.HWAccel {
		x264Params += ":threads=1"
	}

	args := []string{
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.Itoa(settings.FPS),
		"-i", "-",
		"-c:v", "libx264",
		"-profile:v", "high",
		"-level:v", "4.2",
		"-preset", "veryfast",
		"-tune", "zerolatency",
		"-b:v", strconv.Itoa(settings.VideoBitrate),
		"-pix_fmt", "yuv420p",
		"-g", strconv.Itoa(3 * settings.FPS),
		"-keyint_min", strconv.Itoa(3 * settings.FPS),
		"-force_key_frames", "expr:gte(t,n_forced*3)",
		"-x264-params", x264Params,
		"-f", "h264",
		"-",
	}

	cmd := exec.Command(ffmpegBin, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedEncoder, err)
	}

	e := &VideoEncoder{
		cmd:       cmd,
		stdin:     stdin,
		queue:     make(chan struct{}, DefaultQueueSize),
		frameSize: width * height * 4,
		done:      make(chan struct{}),
	}

	go e.readLoop(stdout)
	return e, nil
}

// readLoop parses the encoder output into access units, releasing
// one queue token per finished unit.
func (e *VideoEncoder) readLoop(stdout io.Reader) {
	defer close(e.done)

	var pending [][]byte // Non-VCL NALUs waiting for their slice.

	scanner := NewNALUScanner(stdout)
	for scanner.Scan() {
		nalu := scanner.NALU()
		typ := h264.Type(nalu)

		switch typ {
		case h264.NALUTypeSPS:
			if e.sps == nil {
				e.sps = append([]byte(nil), nalu...)
			}
			continue
		case h264.NALUTypePPS:
			if e.pps == nil {
				e.pps = append([]byte(nil), nalu...)
			}
			continue
		case h264.NALUTypeAccessUnitDelimiter, h264.NALUTypeFillerData:
			continue
		}

		if !h264.IsVCL(typ) {
			pending = append(pending, append([]byte(nil), nalu...))
			continue
		}

		nalus := append(pending, append([]byte(nil), nalu...))
		pending = nil

		e.samples = append(e.samples, EncodedSample{
			AVCC:  h264.AVCCMarshal(nalus),
			IsIDR: typ == h264.NALUTypeIDR,
		})

		// Release the in-flight slot.
		select {
		case <-e.queue:
		default:
		}
	}
	e.readerErr = scanner.Err()
}

// Encode submits one frame. It blocks while the in-flight queue is
// full, awaiting an encoder dequeue.
func (e *VideoEncoder) Encode(ctx context.Context, frame *image.RGBA) error {
	if len(frame.Pix) != e.frameSize {
		return fmt.Errorf("frame size %d does not match encoder %d", len(frame.Pix), e.frameSize)
	}

	select {
	case e.queue <- struct{}{}:
	case <-e.done:
		return fmt.Errorf("%w: %v", ErrEncoderClosed, e.readerErr)
	case <-ctx.Done():
		return ctx.Err()
	}

	if _, err := e.stdin.Write(frame.Pix); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Flush closes the input, waits for every pending access unit and
// returns the encoded stream.
func (e *VideoEncoder) Flush(ctx context.Context) ([]EncodedSample, []byte, []byte, error) {
	e.stdin.Close() //nolint:errcheck

	select {
	case <-e.done:
	case <-ctx.Done():
		e.Close()
		return nil, nil, nil, ctx.Err()
	}

	if err := e.cmd.Wait(); err != nil {
		return nil, nil, nil, fmt.Errorf("encoder exited: %w", err)
	}
	if e.readerErr != nil {
		return nil, nil, nil, e.readerErr
	}
	if e.sps == nil || e.pps == nil {
		return nil, nil, nil, ErrUnsupportedEncoder
	}

	return e.samples, e.sps, e.pps, nil
}

// Close kills the encoder process, used on cancellation.
func (e *VideoEncoder) Close() {
	e.stdin.Close() //nolint:errcheck
	if e.cmd.Process != nil {
		e.cmd.Process.Kill() //nolint:errcheck
	}
	e.cmd.Wait() //nolint:errcheck
}
