package mp4muxer

import (
	"errors"
	"fmt"
	"math"

	"vexport/pkg/video/aac"
	"vexport/pkg/video/h264"
	"vexport/pkg/video/mp4"
)

// VideoTimescale the number of time units that pass per second.
const VideoTimescale = 90000

// Track IDs.
const (
	VideoTrackID = 1
	AudioTrackID = 2
)

// Muxer errors.
var (
	ErrNoVideoSamples = errors.New("no video samples")
	ErrNoParameterSet = errors.New("missing SPS or PPS")
)

// VideoSample is one encoded H264 access unit in decode order.
type VideoSample struct {
	AVCC []byte // Length-prefixed NALUs.

	PTS      int64 // Microseconds.
	DTS      int64 // Microseconds.
	Duration int64 // Microseconds.

	IsSyncSample bool
}

// Muxer assembles encoded samples into a progressive MP4 file.
// Samples are held in memory until Marshal.
type Muxer struct {
	width  int
	height int
	sps    []byte
	pps    []byte

	audioConfig  *aac.MPEG4AudioConfig
	audioBitrate uint32

	videoSamples []VideoSample
	audioAUs     [][]byte
}

// NewMuxer returns a muxer for a H264 track with the given dimensions
// and parameter sets. audioConfig may be nil if the file has no audio.
func NewMuxer(
	width int,
	height int,
	sps []byte,
	pps []byte,
	audioConfig *aac.MPEG4AudioConfig,
	audioBitrate int,
) *Muxer {
	return &Muxer{
		width:        width,
		height:       height,
		sps:          sps,
		pps:          pps,
		audioConfig:  audioConfig,
		audioBitrate: uint32(audioBitrate),
	}
}

// WriteVideoSample appends an encoded video sample.
// Samples must be written in decode order.
func (m *Muxer) WriteVideoSample(sample VideoSample) {
	m.videoSamples = append(m.videoSamples, sample)
}

// WriteAudioSample appends one AAC access unit of 1024 samples.
func (m *Muxer) WriteAudioSample(au []byte) {
	m.audioAUs = append(m.audioAUs, au)
}

// VideoSampleCount returns the number of written video samples.
func (m *Muxer) VideoSampleCount() int {
	return len(m.videoSamples)
}

func toTimescale(us int64, timescale int64) int64 {
	return us * timescale / 1e6
}

// tables holds the sample tables of one track while the
// mdat is being laid out.
type tables struct {
	stts []mp4.SttsEntry
	stss []uint32
	ctts []mp4.CttsEntry
	stsc []mp4.StscEntry
	stsz []uint32
	stco []uint32
}

type layout struct {
	video tables
	audio tables

	mdat []byte

	prevChunkVideo bool
	prevChunkAudio bool

	hasCtts bool
}

func (l *layout) writeVideoSample(sample VideoSample, nextDTS int64) {
	dts := toTimescale(sample.DTS, VideoTimescale)
	delta := toTimescale(nextDTS, VideoTimescale) - dts
	if n := len(l.video.stts); n > 0 && l.video.stts[n-1].SampleDelta == uint32(delta) {
		l.video.stts[n-1].SampleCount++
	} else {
		l.video.stts = append(l.video.stts, mp4.SttsEntry{
			SampleCount: 1,
			SampleDelta: uint32(delta),
		})
	}

	cts := toTimescale(sample.PTS, VideoTimescale) - dts
	if cts != 0 {
		l.hasCtts = true
	}
	if n := len(l.video.ctts); n > 0 && l.video.ctts[n-1].SampleOffsetV1 == int32(cts) {
		l.video.ctts[n-1].SampleCount++
	} else {
		l.video.ctts = append(l.video.ctts, mp4.CttsEntry{
			SampleCount:    1,
			SampleOffsetV1: int32(cts),
		})
	}

	if l.prevChunkVideo {
		l.video.stsc[len(l.video.stsc)-1].SamplesPerChunk++
	} else {
		l.video.stco = append(l.video.stco, uint32(len(l.mdat)))
		l.video.stsc = append(l.video.stsc, mp4.StscEntry{
			FirstChunk:             uint32(len(l.video.stco)),
			SamplesPerChunk:        1,
			SampleDescriptionIndex: 1,
		})
		l.prevChunkVideo = true
		l.prevChunkAudio = false
	}

	l.video.stsz = append(l.video.stsz, uint32(len(sample.AVCC)))
	l.mdat = append(l.mdat, sample.AVCC...)

	if sample.IsSyncSample {
		l.video.stss = append(l.video.stss, uint32(len(l.video.stsz)))
	}
}

func (l *layout) writeAudioSample(au []byte) {
	if n := len(l.audio.stts); n > 0 && l.audio.stts[n-1].SampleDelta == aac.SamplesPerAccessUnit {
		l.audio.stts[n-1].SampleCount++
	} else {
		l.audio.stts = append(l.audio.stts, mp4.SttsEntry{
			SampleCount: 1,
			SampleDelta: aac.SamplesPerAccessUnit,
		})
	}

	if l.prevChunkAudio {
		l.audio.stsc[len(l.audio.stsc)-1].SamplesPerChunk++
	} else {
		l.audio.stco = append(l.audio.stco, uint32(len(l.mdat)))
		l.audio.stsc = append(l.audio.stsc, mp4.StscEntry{
			FirstChunk:             uint32(len(l.audio.stco)),
			SamplesPerChunk:        1,
			SampleDescriptionIndex: 1,
		})
		l.prevChunkVideo = false
		l.prevChunkAudio = true
	}

	l.audio.stsz = append(l.audio.stsz, uint32(len(au)))
	l.mdat = append(l.mdat, au...)
}

// interleave lays out samples into the mdat in one second buckets,
// video first then audio, so players can stream progressively.
func (m *Muxer) interleave() *layout {
	l := &layout{}

	audioRate := 0
	if m.audioConfig != nil {
		audioRate = m.audioConfig.SampleRate
	}

	vi, ai := 0, 0
	if audioRate == 0 {
		ai = len(m.audioAUs)
	}
	for bucket := int64(0); vi < len(m.videoSamples) || ai < len(m.audioAUs); bucket++ {
		for vi < len(m.videoSamples) && m.videoSamples[vi].DTS < (bucket+1)*1e6 {
			next := m.videoSamples[vi].DTS + m.videoSamples[vi].Duration
			if vi+1 < len(m.videoSamples) {
				next = m.videoSamples[vi+1].DTS
			}
			l.writeVideoSample(m.videoSamples[vi], next)
			vi++
		}
		for ai < len(m.audioAUs) &&
			int64(ai)*aac.SamplesPerAccessUnit*1e6 < (bucket+1)*1e6*int64(audioRate) {
			l.writeAudioSample(m.audioAUs[ai])
			ai++
		}
	}
	return l
}

// Marshal builds the finished MP4 file. With fastStart the moov is
// placed before the mdat so playback can begin before the whole file
// is available.
func (m *Muxer) Marshal(fastStart bool) ([]byte, error) {
	if len(m.videoSamples) == 0 {
		return nil, ErrNoVideoSamples
	}
	if len(m.sps) == 0 || len(m.pps) == 0 {
		return nil, ErrNoParameterSet
	}

	var videoSPS h264.SPS
	if err := videoSPS.Unmarshal(m.sps); err != nil {
		return nil, fmt.Errorf("unmarshal sps: %w", err)
	}

	l := m.interleave()

	last := m.videoSamples[len(m.videoSamples)-1]
	durationUs := last.DTS + last.Duration

	moov, err := m.generateMoov(l, durationUs)
	if err != nil {
		return nil, err
	}

	ftyp := mp4.Boxes{Box: &mp4.Ftyp{
		MajorBrand:   [4]byte{'i', 's', 'o', '4'},
		MinorVersion: 512,
		CompatibleBrands: []mp4.CompatibleBrandElem{
			{CompatibleBrand: [4]byte{'i', 's', 'o', '4'}},
			{CompatibleBrand: [4]byte{'a', 'v', 'c', '1'}},
		},
	}}

	const mdatHeaderSize = 8
	var mdatOffset uint32
	if fastStart {
		mdatOffset = uint32(ftyp.Size() + moov.Size() + mdatHeaderSize)
	} else {
		mdatOffset = uint32(ftyp.Size() + mdatHeaderSize)
	}
	for i := range l.video.stco {
		l.video.stco[i] += mdatOffset
	}
	for i := range l.audio.stco {
		l.audio.stco[i] += mdatOffset
	}

	// The chunk offsets changed after the moov was sized,
	// regenerate it with the final tables.
	moov, err = m.generateMoov(l, durationUs)
	if err != nil {
		return nil, err
	}

	mdat := mp4.Boxes{Box: &mp4.Mdat{Data: l.mdat}}

	if fastStart {
		return mp4.MarshalTree(ftyp, moov, mdat), nil
	}
	return mp4.MarshalTree(ftyp, mdat, moov), nil
}

func (m *Muxer) generateMoov(l *layout, durationUs int64) (mp4.Boxes, error) {
	/*
	   moov
	   - mvhd
	   - trak (video)
	   - trak (audio)
	*/

	nextTrackID := uint32(VideoTrackID + 1)
	if m.audioConfig != nil {
		nextTrackID = AudioTrackID + 1
	}

	moov := mp4.Boxes{
		Box: &mp4.Moov{},
		Children: []mp4.Boxes{
			{Box: &mp4.Mvhd{
				Timescale:   1000,
				DurationV0:  uint32(durationUs / 1000),
				Rate:        65536,
				Volume:      256,
				Matrix:      [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000},
				NextTrackID: nextTrackID,
			}},
			m.generateVideoTrak(l, durationUs),
		},
	}

	if m.audioConfig != nil {
		audioTrak, err := m.generateAudioTrak(l)
		if err != nil {
			return mp4.Boxes{}, err
		}
		moov.Children = append(moov.Children, audioTrak)
	}

	return moov, nil
}

func (m *Muxer) generateVideoTrak(l *layout, durationUs int64) mp4.Boxes {
	/*
	   trak
	   - tkhd
	   - mdia
	     - mdhd
	     - hdlr
	     - minf
	*/

	return mp4.Boxes{
		Box: &mp4.Trak{},
		Children: []mp4.Boxes{
			{Box: &mp4.Tkhd{
				FullBox: mp4.FullBox{
					Flags: [3]byte{0, 0, 3},
				},
				TrackID:    VideoTrackID,
				DurationV0: uint32(durationUs / 1000),
				Width:      uint32(m.width * 65536),
				Height:     uint32(m.height * 65536),
				Matrix:     [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000},
			}},
			{
				Box: &mp4.Mdia{},
				Children: []mp4.Boxes{
					{Box: &mp4.Mdhd{
						Timescale:  VideoTimescale,
						Language:   [3]byte{'u', 'n', 'd'},
						DurationV0: uint32(toTimescale(durationUs, VideoTimescale)),
					}},
					{Box: &mp4.Hdlr{
						HandlerType: [4]byte{'v', 'i', 'd', 'e'},
						Name:        "VideoHandler",
					}},
					m.generateVideoMinf(l),
				},
			},
		},
	}
}

func (m *Muxer) generateVideoMinf(l *layout) mp4.Boxes {
	/*
	   minf
	   - vmhd
	   - dinf
	     - dref
	       - url
	   - stbl
	     - stsd
	       - avc1
	         - avcC
	     - stts
	     - stss
	     - (ctts)
	     - stsc
	     - stsz
	     - stco
	*/

	stsd := mp4.Boxes{
		Box: &mp4.Stsd{EntryCount: 1},
		Children: []mp4.Boxes{
			{
				Box: &mp4.Avc1{
					SampleEntry: mp4.SampleEntry{
						DataReferenceIndex: 1,
					},
					Width:           uint16(m.width),
					Height:          uint16(m.height),
					Horizresolution: 4718592,
					Vertresolution:  4718592,
					FrameCount:      1,
					Depth:           24,
					PreDefined3:     -1,
				},
				Children: []mp4.Boxes{
					{Box: &mp4.AvcC{
						ConfigurationVersion:       1,
						Profile:                    m.sps[1],
						ProfileCompatibility:       m.sps[2],
						Level:                      m.sps[3],
						LengthSizeMinusOne:         3,
						NumOfSequenceParameterSets: 1,
						SequenceParameterSets: []mp4.AVCParameterSet{
							{NALUnit: m.sps},
						},
						NumOfPictureParameterSets: 1,
						PictureParameterSets: []mp4.AVCParameterSet{
							{NALUnit: m.pps},
						},
					}},
				},
			},
		},
	}

	stbl := mp4.Boxes{
		Box: &mp4.Stbl{},
		Children: []mp4.Boxes{
			stsd,
			{Box: &mp4.Stts{Entries: l.video.stts}},
			{Box: &mp4.Stss{SampleNumbers: l.video.stss}},
		},
	}
	if l.hasCtts {
		stbl.Children = append(stbl.Children, mp4.Boxes{
			Box: &mp4.Ctts{
				FullBox: mp4.FullBox{Version: 1},
				Entries: l.video.ctts,
			},
		})
	}
	stbl.Children = append(stbl.Children,
		mp4.Boxes{Box: &mp4.Stsc{Entries: l.video.stsc}},
		mp4.Boxes{Box: &mp4.Stsz{
			SampleCount: uint32(len(l.video.stsz)),
			EntrySizes:  l.video.stsz,
		}},
		mp4.Boxes{Box: &mp4.Stco{ChunkOffsets: l.video.stco}},
	)

	return mp4.Boxes{
		Box: &mp4.Minf{},
		Children: []mp4.Boxes{
			{Box: &mp4.Vmhd{FullBox: mp4.FullBox{Flags: [3]byte{0, 0, 1}}}},
			generateDinf(),
			stbl,
		},
	}
}

func (m *Muxer) generateAudioTrak(l *layout) (mp4.Boxes, error) {
	/*
	   trak
	   - tkhd
	   - mdia
	     - mdhd
	     - hdlr
	     - minf
	*/

	audioConfig, err := m.audioConfig.Encode()
	if err != nil {
		return mp4.Boxes{}, fmt.Errorf("marshal audio config: %w", err)
	}

	sampleCount := int64(len(l.audio.stsz))
	durationMs := sampleCount * aac.SamplesPerAccessUnit * 1000 /
		int64(m.audioConfig.SampleRate)

	trak := mp4.Boxes{
		Box: &mp4.Trak{},
		Children: []mp4.Boxes{
			{Box: &mp4.Tkhd{
				FullBox: mp4.FullBox{
					Flags: [3]byte{0, 0, 3},
				},
				TrackID:        AudioTrackID,
				DurationV0:     uint32(durationMs),
				AlternateGroup: 1,
				Volume:         256,
				Matrix:         [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000},
			}},
			{
				Box: &mp4.Mdia{},
				Children: []mp4.Boxes{
					{Box: &mp4.Mdhd{
						Timescale:  uint32(m.audioConfig.SampleRate),
						Language:   [3]byte{'u', 'n', 'd'},
						DurationV0: uint32(sampleCount * aac.SamplesPerAccessUnit),
					}},
					{Box: &mp4.Hdlr{
						HandlerType: [4]byte{'s', 'o', 'u', 'n'},
						Name:        "SoundHandler",
					}},
					m.generateAudioMinf(l, audioConfig),
				},
			},
		},
	}
	return trak, nil
}

func (m *Muxer) generateAudioMinf(l *layout, audioConfig []byte) mp4.Boxes {
	/*
	   minf
	   - smhd
	   - dinf
	     - dref
	       - url
	   - stbl
	     - stsd
	       - mp4a
	         - esds
	     - stts
	     - stsc
	     - stsz
	     - stco
	*/

	return mp4.Boxes{
		Box: &mp4.Minf{},
		Children: []mp4.Boxes{
			{Box: &mp4.Smhd{}},
			generateDinf(),
			{
				Box: &mp4.Stbl{},
				Children: []mp4.Boxes{
					{
						Box: &mp4.Stsd{EntryCount: 1},
						Children: []mp4.Boxes{
							{
								Box: &mp4.Mp4a{
									SampleEntry: mp4.SampleEntry{
										DataReferenceIndex: 1,
									},
									ChannelCount: uint16(m.audioConfig.ChannelCount),
									SampleSize:   16,
									SampleRate:   uint32(m.audioConfig.SampleRate * 65536),
								},
								Children: []mp4.Boxes{
									{Box: &mp4.Esds{
										ESID:       AudioTrackID,
										MaxBitrate: m.audioBitrate,
										AvgBitrate: m.audioBitrate,
										Config:     audioConfig,
									}},
								},
							},
						},
					},
					{Box: &mp4.Stts{Entries: l.audio.stts}},
					{Box: &mp4.Stsc{Entries: l.audio.stsc}},
					{Box: &mp4.Stsz{
						SampleCount: uint32(len(l.audio.stsz)),
						EntrySizes:  l.audio.stsz,
					}},
					{Box: &mp4.Stco{ChunkOffsets: l.audio.stco}},
				},
			},
		},
	}
}

func generateDinf() mp4.Boxes {
	return mp4.Boxes{
		Box: &mp4.Dinf{},
		Children: []mp4.Boxes{
			{
				Box: &mp4.Dref{EntryCount: 1},
				Children: []mp4.Boxes{
					{Box: &mp4.Url{
						FullBox: mp4.FullBox{Flags: [3]byte{0, 0, 1}},
					}},
				},
			},
		},
	}
}

// Duration returns the total duration of the written video samples.
func (m *Muxer) Duration() float64 {
	if len(m.videoSamples) == 0 {
		return 0
	}
	last := m.videoSamples[len(m.videoSamples)-1]
	return float64(last.DTS+last.Duration) / 1e6
}

// ExpectedSampleCount returns the sample count a complete export
// of the given duration and frame rate should produce.
func ExpectedSampleCount(duration float64, fps int) int {
	return int(math.Ceil(duration*float64(fps))) + 1
}
