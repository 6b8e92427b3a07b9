package h264

// NALUType is the type of a NALU.
type NALUType uint8

// NALU types.
const (
	NALUTypeNonIDR                        NALUType = 1
	NALUTypeDataPartitionA                NALUType = 2
	NALUTypeDataPartitionB                NALUType = 3
	NALUTypeDataPartitionC                NALUType = 4
	NALUTypeIDR                           NALUType = 5
	NALUTypeSEI                           NALUType = 6
	NALUTypeSPS                           NALUType = 7
	NALUTypePPS                           NALUType = 8
	NALUTypeAccessUnitDelimiter           NALUType = 9
	NALUTypeEndOfSequence                 NALUType = 10
	NALUTypeEndOfStream                   NALUType = 11
	NALUTypeFillerData                    NALUType = 12
	NALUTypeSPSExtension                  NALUType = 13
	NALUTypePrefix                        NALUType = 14
	NALUTypeSubsetSPS                     NALUType = 15
	NALUTypeReserved16                    NALUType = 16
	NALUTypeReserved17                    NALUType = 17
	NALUTypeReserved18                    NALUType = 18
	NALUTypeSliceLayerWithoutPartitioning NALUType = 19
	NALUTypeSliceExtension                NALUType = 20
	NALUTypeSliceExtensionDepth           NALUType = 21
)

// MaxNALUSize is the maximum size of a NALU.
// with a 250 Mbps H264 video, the maximum NALU size is 2.2MB.
const MaxNALUSize = 3 * 1024 * 1024

// Type returns the type of the NALU.
func Type(nalu []byte) NALUType {
	return NALUType(nalu[0] & 0x1F)
}

// IsVCL reports whether the NALU carries picture slice data.
func IsVCL(typ NALUType) bool {
	return typ == NALUTypeNonIDR ||
		typ == NALUTypeDataPartitionA ||
		typ == NALUTypeDataPartitionB ||
		typ == NALUTypeDataPartitionC ||
		typ == NALUTypeIDR
}

// AntiCompetitionRemove removes the emulation prevention bytes
// from a NALU payload.
func AntiCompetitionRemove(nalu []byte) []byte {
	// 0x00 0x00 0x03 0x00 -> 0x00 0x00 0x00
	// 0x00 0x00 0x03 0x01 -> 0x00 0x00 0x01
	// 0x00 0x00 0x03 0x02 -> 0x00 0x00 0x02
	// 0x00 0x00 0x03 0x03 -> 0x00 0x00 0x03

	ret := make([]byte, 0, len(nalu))
	step := 0
	start := 0

	for i, b := range nalu {
		switch step {
		case 0:
			if b == 0 {
				step++
			}
		case 1:
			if b == 0 {
				step++
			} else {
				step = 0
			}
		case 2:
			if b == 3 {
				ret = append(ret, nalu[start:i]...)
				start = i + 1
			}
			step = 0
		}
	}

	ret = append(ret, nalu[start:]...)
	return ret
}
