package h264

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnnexBUnmarshal(t *testing.T) {
	cases := []struct {
		name  string
		input []byte
		nalus [][]byte
	}{
		{
			"4-byte delimiters",
			[]byte{
				0x00, 0x00, 0x00, 0x01, 0x67, 0xaa, 0xbb,
				0x00, 0x00, 0x00, 0x01, 0x68, 0xcc,
				0x00, 0x00, 0x00, 0x01, 0x65, 0x01, 0x02, 0x03,
			},
			[][]byte{
				{0x67, 0xaa, 0xbb},
				{0x68, 0xcc},
				{0x65, 0x01, 0x02, 0x03},
			},
		},
		{
			"3-byte delimiters",
			[]byte{
				0x00, 0x00, 0x01, 0x67, 0xaa,
				0x00, 0x00, 0x01, 0x41, 0xbb,
			},
			[][]byte{
				{0x67, 0xaa},
				{0x41, 0xbb},
			},
		},
		{
			"single NALU",
			[]byte{0x00, 0x00, 0x00, 0x01, 0x41, 0x00, 0xff},
			[][]byte{{0x41, 0x00, 0xff}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nalus, err := AnnexBUnmarshal(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.nalus, nalus)
		})
	}

	t.Run("missing delimiter", func(t *testing.T) {
		_, err := AnnexBUnmarshal([]byte{0x01, 0x02, 0x03, 0x04})
		require.ErrorIs(t, err, ErrAnnexBMissingStart)
	})
	t.Run("too short", func(t *testing.T) {
		_, err := AnnexBUnmarshal([]byte{0x00, 0x00, 0x01})
		require.ErrorIs(t, err, ErrAnnexBStreamTooShort)
	})
	t.Run("empty NALU", func(t *testing.T) {
		_, err := AnnexBUnmarshal([]byte{
			0x00, 0x00, 0x00, 0x01, 0x41,
			0x00, 0x00, 0x01, 0x00, 0x00, 0x01, 0x41,
		})
		require.ErrorIs(t, err, ErrAnnexBEmptyNALU)
	})
}

func TestAnnexBRoundTrip(t *testing.T) {
	nalus := [][]byte{
		{0x67, 0x64, 0x00, 0x2a},
		{0x68, 0xee},
		{0x65, 0x88, 0x84, 0x00},
	}
	dec, err := AnnexBUnmarshal(AnnexBMarshal(nalus))
	require.NoError(t, err)
	require.Equal(t, nalus, dec)
}

func TestAVCCMarshal(t *testing.T) {
	buf := AVCCMarshal([][]byte{
		{0x65, 0xaa},
		{0x41},
	})
	require.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x02, 0x65, 0xaa,
		0x00, 0x00, 0x00, 0x01, 0x41,
	}, buf)

	dec, err := AVCCUnmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, [][]byte{{0x65, 0xaa}, {0x41}}, dec)
}

func TestNALUType(t *testing.T) {
	require.Equal(t, NALUTypeSPS, Type([]byte{0x67}))
	require.Equal(t, NALUTypePPS, Type([]byte{0x68}))
	require.Equal(t, NALUTypeIDR, Type([]byte{0x65}))
	require.Equal(t, NALUTypeNonIDR, Type([]byte{0x41}))

	require.True(t, IsVCL(NALUTypeIDR))
	require.True(t, IsVCL(NALUTypeNonIDR))
	require.False(t, IsVCL(NALUTypeSPS))
	require.False(t, IsVCL(NALUTypeSEI))
}

func TestAntiCompetitionRemove(t *testing.T) {
	require.Equal(t,
		[]byte{0x00, 0x00, 0x01, 0xaa, 0x00, 0x00, 0x00},
		AntiCompetitionRemove([]byte{0x00, 0x00, 0x03, 0x01, 0xaa, 0x00, 0x00, 0x03, 0x00}))
}

func TestSPSUnmarshal(t *testing.T) {
	t.Run("1920x1080", func(t *testing.T) {
		var sps SPS
		err := sps.Unmarshal([]byte{
			0x67, 0x64, 0x00, 0x28, 0xac, 0xd9, 0x40, 0x78,
			0x02, 0x27, 0xe5, 0x84, 0x00, 0x00, 0x03, 0x00,
			0x04, 0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x60,
			0xc6, 0x58,
		})
		require.NoError(t, err)
		require.Equal(t, uint8(100), sps.ProfileIdc)
		require.Equal(t, uint8(40), sps.LevelIdc)
		require.Equal(t, 1920, sps.Width())
		require.Equal(t, 1080, sps.Height())
	})

	t.Run("not a SPS", func(t *testing.T) {
		var sps SPS
		require.ErrorIs(t, sps.Unmarshal([]byte{0x68, 0xee, 0x01, 0x02}), ErrSPSWrongType)
	})
	t.Run("too short", func(t *testing.T) {
		var sps SPS
		require.ErrorIs(t, sps.Unmarshal([]byte{0x67}), ErrSPSBufferTooShort)
	})
}
