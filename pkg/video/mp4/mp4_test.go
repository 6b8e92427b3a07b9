package mp4

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoxTypes(t *testing.T) {
	testCases := []struct {
		name string
		src  ImmutableBox
		bin  []byte
	}{
		{
			name: "btrt",
			src: &Btrt{
				BufferSizeDB: 0x12345678,
				MaxBitrate:   0x3456789a,
				AvgBitrate:   0x56789abc,
			},
			bin: []byte{
				0x12, 0x34, 0x56, 0x78, // bufferSizeDB
				0x34, 0x56, 0x78, 0x9a, // maxBitrate
				0x56, 0x78, 0x9a, 0xbc, // avgBitrate
			},
		},
		{
			name: "ftyp",
			src: &Ftyp{
				MajorBrand:   [4]byte{'i', 's', 'o', '4'},
				MinorVersion: 0x200,
				CompatibleBrands: []CompatibleBrandElem{
					{CompatibleBrand: [4]byte{'i', 's', 'o', '4'}},
				},
			},
			bin: []byte{
				'i', 's', 'o', '4',
				0x00, 0x00, 0x02, 0x00, // minor version
				'i', 's', 'o', '4',
			},
		},
		{
			name: "stts",
			src: &Stts{
				Entries: []SttsEntry{
					{SampleCount: 60, SampleDelta: 3000},
				},
			},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // version, flags
				0x00, 0x00, 0x00, 0x01, // entry count
				0x00, 0x00, 0x00, 0x3c, // sample count
				0x00, 0x00, 0x0b, 0xb8, // sample delta
			},
		},
		{
			name: "stss",
			src: &Stss{
				SampleNumbers: []uint32{1, 91},
			},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // version, flags
				0x00, 0x00, 0x00, 0x02, // entry count
				0x00, 0x00, 0x00, 0x01,
				0x00, 0x00, 0x00, 0x5b,
			},
		},
		{
			name: "ctts: version 1",
			src: &Ctts{
				FullBox: FullBox{Version: 1},
				Entries: []CttsEntry{
					{SampleCount: 1, SampleOffsetV1: -2},
				},
			},
			bin: []byte{
				1,                // version
				0x00, 0x00, 0x00, // flags
				0x00, 0x00, 0x00, 0x01, // entry count
				0x00, 0x00, 0x00, 0x01, // sample count
				0xff, 0xff, 0xff, 0xfe, // sample offset
			},
		},
		{
			name: "stco",
			src: &Stco{
				ChunkOffsets: []uint32{0x28, 0x1234},
			},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // version, flags
				0x00, 0x00, 0x00, 0x02, // entry count
				0x00, 0x00, 0x00, 0x28,
				0x00, 0x00, 0x12, 0x34,
			},
		},
		{
			name: "avcC",
			src: &AvcC{
				ConfigurationVersion:       1,
				Profile:                    AVCHighProfile,
				ProfileCompatibility:       0,
				Level:                      42,
				LengthSizeMinusOne:         3,
				NumOfSequenceParameterSets: 1,
				SequenceParameterSets: []AVCParameterSet{
					{NALUnit: []byte{0x67, 0x64, 0x00, 0x2a}},
				},
				NumOfPictureParameterSets: 1,
				PictureParameterSets: []AVCParameterSet{
					{NALUnit: []byte{0x68, 0xee}},
				},
			},
			bin: []byte{
				0x01,       // configuration version
				0x64,       // profile
				0x00,       // profile compatibility
				0x2a,       // level
				0x03,       // reserved, lengthSizeMinusOne
				0x01,       // reserved, numOfSequenceParameterSets
				0x00, 0x04, // sps length
				0x67, 0x64, 0x00, 0x2a, // sps
				0x01,       // numOfPictureParameterSets
				0x00, 0x02, // pps length
				0x68, 0xee, // pps
			},
		},
		{
			name: "esds",
			src: &Esds{
				ESID:       2,
				MaxBitrate: 128707,
				AvgBitrate: 128707,
				Config:     []byte{0x11, 0x90},
			},
			bin: []byte{
				0, 0x00, 0x00, 0x00, // version, flags
				0x03,             // ES descriptor tag
				0x80, 0x80, 0x80, // extended tag
				34,         // size
				0x00, 0x02, // ES_ID
				0x00,             // flags
				0x04,             // decoder config tag
				0x80, 0x80, 0x80, // extended tag
				20,   // size
				0x40, // object type (MPEG-4 audio)
				0x15, // stream type
				0x00, 0x00, 0x00, // buffer size
				0x00, 0x01, 0xf6, 0xc3, // max bitrate
				0x00, 0x01, 0xf6, 0xc3, // average bitrate
				0x05,             // decoder specific info tag
				0x80, 0x80, 0x80, // extended tag
				2,          // size
				0x11, 0x90, // config
				0x06,             // SL config tag
				0x80, 0x80, 0x80, // extended tag
				1, // size
				2, // flags
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, len(tc.bin), tc.src.Size())

			buf := make([]byte, tc.src.Size())
			pos := 0
			tc.src.Marshal(buf, &pos)

			require.Equal(t, len(tc.bin), pos)
			require.Equal(t, tc.bin, buf)
		})
	}
}

func TestBoxesMarshal(t *testing.T) {
	boxes := Boxes{
		Box: &Moov{},
		Children: []Boxes{
			{Box: &Mdia{}},
			{Box: &Stsd{EntryCount: 1}},
		},
	}

	// moov header + empty mdia + stsd.
	require.Equal(t, 8+8+16, boxes.Size())

	buf := MarshalTree(boxes)

	require.Equal(t, boxes.Size(), len(buf))
	require.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x20, 'm', 'o', 'o', 'v',
		0x00, 0x00, 0x00, 0x08, 'm', 'd', 'i', 'a',
		0x00, 0x00, 0x00, 0x10, 's', 't', 's', 'd',
		0, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x01,
	}, buf)
}
