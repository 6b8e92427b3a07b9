package h264

import (
	"errors"
	"fmt"
)

// Annex-B errors.
var (
	ErrAnnexBMissingStart   = errors.New("initial delimiter not found")
	ErrAnnexBEmptyNALU      = errors.New("empty NALU")
	ErrAnnexBStreamTooShort = errors.New("stream too short")
	ErrAnnexBNoNALUs        = errors.New("stream does not contain any NALU")
)

// AnnexBUnmarshal decodes NALUs from the Annex-B stream format.
func AnnexBUnmarshal(buf []byte) ([][]byte, error) { //nolint:funlen
	bl := len(buf)
	if bl < 4 {
		return nil, ErrAnnexBStreamTooShort
	}

	// Initial delimiter, either 0x000001 or 0x00000001.
	var pos int
	switch {
	case buf[0] == 0 && buf[1] == 0 && buf[2] == 1:
		pos = 3
	case buf[0] == 0 && buf[1] == 0 && buf[2] == 0 && buf[3] == 1:
		pos = 4
	default:
		return nil, ErrAnnexBMissingStart
	}

	var ret [][]byte
	start := pos
	zeros := 0

	for i := pos; i < bl; i++ {
		switch {
		case buf[i] == 0:
			zeros++

		case buf[i] == 1 && zeros >= 2:
			end := i - zeros
			if end-start == 0 {
				return nil, ErrAnnexBEmptyNALU
			}
			nalu := buf[start:end]
			if len(nalu) > MaxNALUSize {
				return nil, fmt.Errorf("NALU size (%d) is too big (maximum is %d)", len(nalu), MaxNALUSize)
			}
			ret = append(ret, nalu)
			start = i + 1
			zeros = 0

		default:
			zeros = 0
		}
	}

	if start == bl {
		return nil, ErrAnnexBEmptyNALU
	}
	nalu := buf[start:]
	if len(nalu) > MaxNALUSize {
		return nil, fmt.Errorf("NALU size (%d) is too big (maximum is %d)", len(nalu), MaxNALUSize)
	}
	ret = append(ret, nalu)

	if len(ret) == 0 {
		return nil, ErrAnnexBNoNALUs
	}
	return ret, nil
}

// AnnexBMarshal encodes NALUs into the Annex-B stream format.
func AnnexBMarshal(nalus [][]byte) []byte {
	n := 0
	for _, nalu := range nalus {
		n += 4 + len(nalu)
	}

	ret := make([]byte, 0, n)
	for _, nalu := range nalus {
		ret = append(ret, 0x00, 0x00, 0x00, 0x01)
		ret = append(ret, nalu...)
	}
	return ret
}
