package h264

import (
	"bytes"
	"errors"

	"github.com/icza/bitio"
)

// SPS errors.
var (
	ErrSPSBufferTooShort = errors.New("buffer too short")
	ErrSPSWrongType      = errors.New("not a SPS")
)

func readGolombUnsigned(br *bitio.Reader) (uint32, error) {
	leadingZeroBits := uint32(0)

	for {
		b, err := br.ReadBits(1)
		if err != nil {
			return 0, err
		}

		if b != 0 {
			break
		}

		leadingZeroBits++
	}

	codeNum := uint32(0)

	for n := leadingZeroBits; n > 0; n-- {
		b, err := br.ReadBits(1)
		if err != nil {
			return 0, err
		}

		codeNum |= uint32(b) << (n - 1)
	}

	codeNum = (1 << leadingZeroBits) - 1 + codeNum

	return codeNum, nil
}

func readGolombSigned(br *bitio.Reader) (int32, error) {
	v, err := readGolombUnsigned(br)
	if err != nil {
		return 0, err
	}
	vi := int32(v)

	if (vi & 0x01) != 0 {
		return (vi + 1) / 2, nil
	}

	return -vi / 2, nil
}

func readFlag(br *bitio.Reader) (bool, error) {
	tmp, err := br.ReadBits(1)
	if err != nil {
		return false, err
	}

	return (tmp == 1), nil
}

func skipScalingList(br *bitio.Reader, size int) error {
	lastScale := int32(8)
	nextScale := int32(8)

	for j := 0; j < size; j++ {
		if nextScale != 0 {
			deltaScale, err := readGolombSigned(br)
			if err != nil {
				return err
			}
			nextScale = (lastScale + deltaScale + 256) % 256
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}
	return nil
}

// SpsFramecropping is the frame cropping of a SPS.
type SpsFramecropping struct {
	LeftOffset   uint32
	RightOffset  uint32
	TopOffset    uint32
	BottomOffset uint32
}

func (c *SpsFramecropping) unmarshal(br *bitio.Reader) error {
	var err error
	c.LeftOffset, err = readGolombUnsigned(br)
	if err != nil {
		return err
	}
	c.RightOffset, err = readGolombUnsigned(br)
	if err != nil {
		return err
	}
	c.TopOffset, err = readGolombUnsigned(br)
	if err != nil {
		return err
	}
	c.BottomOffset, err = readGolombUnsigned(br)
	if err != nil {
		return err
	}
	return nil
}

// SPS is a H264 sequence parameter set, parsed only as far as the
// fields needed to describe the track.
type SPS struct {
	ProfileIdc uint8
	LevelIdc   uint8

	ChromaFormatIdc      uint32
	PicWidthInMbsMinus1  uint32
	PicHeightInMbsMinus1 uint32
	FrameMbsOnlyFlag     bool
	FrameCropping        *SpsFramecropping
}

// Unmarshal decodes a SPS from bytes.
func (s *SPS) Unmarshal(buf []byte) error { //nolint:funlen
	// ref: ISO/IEC 14496-10:2020

	buf = AntiCompetitionRemove(buf)

	if len(buf) < 4 {
		return ErrSPSBufferTooShort
	}

	if Type(buf) != NALUTypeSPS {
		return ErrSPSWrongType
	}

	s.ProfileIdc = buf[1]
	s.LevelIdc = buf[3]

	r := bytes.NewReader(buf[4:])
	br := bitio.NewReader(r)

	// seq_parameter_set_id.
	if _, err := readGolombUnsigned(br); err != nil {
		return err
	}

	if err := s.unmarshalProfileIdc(br); err != nil {
		return err
	}

	// log2_max_frame_num_minus4.
	if _, err := readGolombUnsigned(br); err != nil {
		return err
	}

	picOrderCntType, err := readGolombUnsigned(br)
	if err != nil {
		return err
	}
	if err := skipPicOrderCnt(br, picOrderCntType); err != nil {
		return err
	}

	// max_num_ref_frames.
	if _, err := readGolombUnsigned(br); err != nil {
		return err
	}

	// gaps_in_frame_num_value_allowed_flag.
	if _, err := readFlag(br); err != nil {
		return err
	}

	s.PicWidthInMbsMinus1, err = readGolombUnsigned(br)
	if err != nil {
		return err
	}

	s.PicHeightInMbsMinus1, err = readGolombUnsigned(br)
	if err != nil {
		return err
	}

	s.FrameMbsOnlyFlag, err = readFlag(br)
	if err != nil {
		return err
	}

	if !s.FrameMbsOnlyFlag {
		// mb_adaptive_frame_field_flag.
		if _, err := readFlag(br); err != nil {
			return err
		}
	}

	// direct_8x8_inference_flag.
	if _, err := readFlag(br); err != nil {
		return err
	}

	frameCroppingFlag, err := readFlag(br)
	if err != nil {
		return err
	}

	if frameCroppingFlag {
		s.FrameCropping = &SpsFramecropping{}
		if err := s.FrameCropping.unmarshal(br); err != nil {
			return err
		}
	} else {
		s.FrameCropping = nil
	}

	// The VUI is not needed to describe the track.
	return nil
}

func (s *SPS) unmarshalProfileIdc(br *bitio.Reader) error {
	switch s.ProfileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		var err error
		s.ChromaFormatIdc, err = readGolombUnsigned(br)
		if err != nil {
			return err
		}

		if s.ChromaFormatIdc == 3 {
			// separate_colour_plane_flag.
			if _, err := readFlag(br); err != nil {
				return err
			}
		}

		// bit_depth_luma_minus8, bit_depth_chroma_minus8.
		if _, err := readGolombUnsigned(br); err != nil {
			return err
		}
		if _, err := readGolombUnsigned(br); err != nil {
			return err
		}

		// qpprime_y_zero_transform_bypass_flag.
		if _, err := readFlag(br); err != nil {
			return err
		}

		seqScalingMatrixPresentFlag, err := readFlag(br)
		if err != nil {
			return err
		}
		if seqScalingMatrixPresentFlag {
			return s.skipSeqScalingMatrix(br)
		}

	default:
		s.ChromaFormatIdc = 1
	}
	return nil
}

func (s *SPS) skipSeqScalingMatrix(br *bitio.Reader) error {
	lim := 8
	if s.ChromaFormatIdc == 3 {
		lim = 12
	}

	for i := 0; i < lim; i++ {
		seqScalingListPresentFlag, err := readFlag(br)
		if err != nil {
			return err
		}
		if !seqScalingListPresentFlag {
			continue
		}

		if i < 6 {
			err = skipScalingList(br, 16)
		} else {
			err = skipScalingList(br, 64)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func skipPicOrderCnt(br *bitio.Reader, picOrderCntType uint32) error {
	switch picOrderCntType {
	case 0:
		// log2_max_pic_order_cnt_lsb_minus4.
		_, err := readGolombUnsigned(br)
		return err

	case 1:
		// delta_pic_order_always_zero_flag.
		if _, err := readFlag(br); err != nil {
			return err
		}
		// offset_for_non_ref_pic, offset_for_top_to_bottom_field.
		if _, err := readGolombSigned(br); err != nil {
			return err
		}
		if _, err := readGolombSigned(br); err != nil {
			return err
		}

		numRefFramesInPicOrderCntCycle, err := readGolombUnsigned(br)
		if err != nil {
			return err
		}
		for i := uint32(0); i < numRefFramesInPicOrderCntCycle; i++ {
			if _, err := readGolombSigned(br); err != nil {
				return err
			}
		}
	}
	return nil
}

// Width returns the video width.
func (s SPS) Width() int {
	if s.FrameCropping != nil {
		return int(((s.PicWidthInMbsMinus1 + 1) * 16) - (s.FrameCropping.LeftOffset+s.FrameCropping.RightOffset)*2)
	}

	return int((s.PicWidthInMbsMinus1 + 1) * 16)
}

// Height returns the video height.
func (s SPS) Height() int {
	f := uint32(0)
	if s.FrameMbsOnlyFlag {
		f = 1
	}

	if s.FrameCropping != nil {
		return int(((2 - f) * (s.PicHeightInMbsMinus1 + 1) * 16) - (s.FrameCropping.TopOffset+s.FrameCropping.BottomOffset)*2)
	}

	return int((2 - f) * (s.PicHeightInMbsMinus1 + 1) * 16)
}
