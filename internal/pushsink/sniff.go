package pushsink

// looksLikeImage does a cheap magic-byte check before attempting a full
// image.Decode, so an obviously-truncated or non-image blob is rejected
// without paying for a decode attempt.
//
// Adapted from the teacher's internal/utils/validation.go IsValidJPEG:
// generalized to also recognize PNG (the push endpoint accepts both,
// per §6) and narrowed to a fast pre-check rather than the sole
// validity gate — image.Decode in pushsink.go is the real decision of
// whether a frame is bad_frame.
func looksLikeImage(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	if data[0] == 0xFF && data[1] == 0xD8 {
		return true // JPEG SOI marker
	}
	pngSig := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	for i, b := range pngSig {
		if data[i] != b {
			return false
		}
	}
	return true
}
