package aac

// MPEG4AudioType is the type of an MPEG-4 audio stream.
type MPEG4AudioType int

// Standard MPEG-4 audio types.
const (
	MPEG4AudioTypeAACLC MPEG4AudioType = 2
)

// SamplesPerAccessUnit is the number of samples contained by a single AAC AU.
const SamplesPerAccessUnit = 1024

// MaxAccessUnitSize is the maximum size of an Access Unit (AU).
const MaxAccessUnitSize = 5 * 1024

var sampleRates = []int{
	96000, 88200, 64000, 48000, 44100, 32000,
	24000, 22050, 16000, 12000, 11025, 8000, 7350,
}

var reverseSampleRates = map[int]int{
	96000: 0,
	88200: 1,
	64000: 2,
	48000: 3,
	44100: 4,
	32000: 5,
	24000: 6,
	22050: 7,
	16000: 8,
	12000: 9,
	11025: 10,
	8000:  11,
	7350:  12,
}
