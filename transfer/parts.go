package transfer

// partRange is one contiguous byte extent of a multipart upload, computed up
// front so the part math stays independent of file I/O.
type partRange struct {
	Offset int64
	Length int64
}

// partition splits totalSize bytes into fixed-size ranges, the last range
// holding the remainder. The ranges are contiguous, non-overlapping, and
// cover [0, totalSize) exactly.
func partition(totalSize, partSize int64) []partRange {
	if totalSize <= 0 || partSize <= 0 {
		return nil
	}

	count := totalSize / partSize
	if totalSize%partSize != 0 {
		count++
	}

	ranges := make([]partRange, 0, count)
	for offset := int64(0); offset < totalSize; offset += partSize {
		length := partSize
		if remaining := totalSize - offset; remaining < partSize {
			length = remaining
		}
		ranges = append(ranges, partRange{Offset: offset, Length: length})
	}
	return ranges
}
