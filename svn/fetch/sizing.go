package fetch

// digits counts the decimal digits of a non-negative number, at least 1.
func digits(n int64) int {
	if n == 0 {
		return 1
	}
	d := 0
	for n > 0 {
		d++
		n /= 10
	}
	return d
}

// RawSizeSVN computes the total wire footprint of one get-file body
// response - payload bytes plus the fixed framing around it and the
// per-4096-byte-literal marker overhead - mirroring get_files' raw_size
// computation in the reference client. The result is recorded on
// FileEntry.RawSize; progress reporting counts body bytes instead, and actual
// extraction is driven by the assembler's response-group counting rather
// than this figure, since counting framing bytes exactly is only needed
// for the C client's fixed-buffer memmove, which the Go buffer's grow-on
// demand Append makes unnecessary.
func RawSizeSVN(revision, size int64) int64 {
	const lastResponse = 20
	// Like the remainder term below, the original counts revision digits
	// with a divide-before-test loop that runs digits(revision)-1 times -
	// svnup.c:1857-1860.
	firstResponse := int64(84 + (digits(revision) - 1))
	blockSizeMarkers := int64(6) * (size / 4096)
	if rem := size % 4096; rem != 0 {
		// get_files adds a flat 3, then counts digits via a decrement-first
		// loop (divide, then test >0) that runs digits(rem)-1 times rather
		// than digits(rem) - svnup.c:1868-1873.
		blockSizeMarkers += int64(3 + (digits(rem) - 1))
	}
	return size + firstResponse + lastResponse + blockSizeMarkers
}

// RawSizeHTTP adds the HTTP header block length to a body size, the
// get_files formula for the HTTP-mode raw_size.
func RawSizeHTTP(size int64, headerLen int) int64 {
	return size + int64(headerLen)
}
