package aac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestADTSRoundTrip(t *testing.T) {
	pkts := []*ADTSPacket{
		{
			Type:         int(MPEG4AudioTypeAACLC),
			SampleRate:   48000,
			ChannelCount: 2,
			AU:           []byte{0x21, 0x00, 0x49, 0x90, 0x02, 0x19},
		},
		{
			Type:         int(MPEG4AudioTypeAACLC),
			SampleRate:   48000,
			ChannelCount: 2,
			AU:           []byte{0x21, 0x10},
		},
	}

	buf, err := EncodeADTS(pkts)
	require.NoError(t, err)

	dec, err := DecodeADTS(buf)
	require.NoError(t, err)
	require.Equal(t, pkts, dec)
}

func TestDecodeADTSErrors(t *testing.T) {
	t.Run("tooShort", func(t *testing.T) {
		_, err := DecodeADTS([]byte{0xff})
		require.ErrorIs(t, err, ErrADTSdecodeLengthInvalid)
	})
	t.Run("badSyncword", func(t *testing.T) {
		_, err := DecodeADTS([]byte{0x12, 0x34, 0, 0, 0, 0, 0, 0})
		require.ErrorIs(t, err, ErrADTSdecodeSyncwordInvalid)
	})
	t.Run("truncatedFrame", func(t *testing.T) {
		pkts := []*ADTSPacket{{
			Type: int(MPEG4AudioTypeAACLC), SampleRate: 44100,
			ChannelCount: 1, AU: []byte{1, 2, 3, 4},
		}}
		buf, err := EncodeADTS(pkts)
		require.NoError(t, err)
		_, err = DecodeADTS(buf[:len(buf)-2])
		require.ErrorIs(t, err, ErrADTSdecodeFrameLengthInvalid)
	})
}

func TestMPEG4AudioConfig(t *testing.T) {
	config := MPEG4AudioConfig{
		Type:         MPEG4AudioTypeAACLC,
		SampleRate:   48000,
		ChannelCount: 2,
	}

	enc, err := config.Encode()
	require.NoError(t, err)
	require.Equal(t, []byte{0x11, 0x90}, enc)

	var dec MPEG4AudioConfig
	require.NoError(t, dec.Decode(enc))
	require.Equal(t, config, dec)
}

func TestMPEG4AudioConfigRates(t *testing.T) {
	for _, rate := range []int{8000, 16000, 22050, 44100, 48000} {
		config := MPEG4AudioConfig{
			Type:         MPEG4AudioTypeAACLC,
			SampleRate:   rate,
			ChannelCount: 1,
		}
		enc, err := config.Encode()
		require.NoError(t, err)

		var dec MPEG4AudioConfig
		require.NoError(t, dec.Decode(enc))
		require.Equal(t, rate, dec.SampleRate)
	}
}
