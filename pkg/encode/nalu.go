package encode

import (
	"bufio"
	"bytes"
	"io"

	"vexport/pkg/video/h264"
)

var startCode3 = []byte{0x00, 0x00, 0x01}

func startCodeLen(data []byte) int {
	if len(data) >= 3 && data[0] == 0 && data[1] == 0 && data[2] == 1 {
		return 3
	}
	if len(data) >= 4 && data[0] == 0 && data[1] == 0 && data[2] == 0 && data[3] == 1 {
		return 4
	}
	return 0
}

// splitAnnexB is a bufio.SplitFunc emitting one NALU per token from
// an Annex-B stream. Start codes and trailing zero bytes are
// consumed but not part of the token.
func splitAnnexB(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if !atEOF && len(data) < 4 {
		return 0, nil, nil
	}

	sc := startCodeLen(data)
	if sc == 0 {
		return 0, nil, h264.ErrAnnexBMissingStart
	}

	idx := bytes.Index(data[sc:], startCode3)
	if idx < 0 {
		if !atEOF {
			// Need more data.
			return 0, nil, nil
		}
		token := trimTrailingZeros(data[sc:])
		return len(data), token, nil
	}

	end := sc + idx
	token := trimTrailingZeros(data[sc:end])
	return end, token, nil
}

// trimTrailingZeros drops trailing_zero_8bits and the leading zero
// of a four byte start code.
func trimTrailingZeros(nalu []byte) []byte {
	for len(nalu) > 0 && nalu[len(nalu)-1] == 0 {
		nalu = nalu[:len(nalu)-1]
	}
	return nalu
}

// NALUScanner reads NALUs from an Annex-B stream.
type NALUScanner struct {
	scanner *bufio.Scanner
}

// NewNALUScanner returns a scanner over r.
func NewNALUScanner(r io.Reader) *NALUScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), h264.MaxNALUSize+4)
	scanner.Split(splitAnnexB)
	return &NALUScanner{scanner: scanner}
}

// Scan advances to the next NALU.
func (s *NALUScanner) Scan() bool {
	for s.scanner.Scan() {
		if len(s.scanner.Bytes()) > 0 {
			return true
		}
	}
	return false
}

// NALU returns the current NALU. Only valid until the next Scan.
func (s *NALUScanner) NALU() []byte {
	return s.scanner.Bytes()
}

// Err returns the first error encountered.
func (s *NALUScanner) Err() error {
	return s.scanner.Err()
}
