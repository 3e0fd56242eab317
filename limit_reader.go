// SPDX-License-Identifier: MPL-2.0

package unpack

import "io"

// limitErrorReader reads at most limit bytes and then fails with the
// configured error, instead of reporting EOF like [io.LimitReader] would.
// A stream of exactly limit bytes is not an error; the limit only trips
// when the stream holds more data. A limit of -1 disables the check.
type limitErrorReader struct {
	r     io.Reader
	limit int64
	read  int64
	err   error // returned once the limit is hit
}

func newLimitErrorReader(r io.Reader, limit int64, onExceed error) *limitErrorReader {
	return &limitErrorReader{r: r, limit: limit, err: onExceed}
}

func (l *limitErrorReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	m := int64(len(p))
	if l.limit != -1 {
		rem := l.limit - l.read
		if rem == 0 {
			// At the boundary the stream may be exactly consumed. Only a
			// stream that still yields data exceeds the limit.
			var b [1]byte
			n, err := l.r.Read(b[:])
			if n > 0 {
				return 0, l.err
			}
			return 0, err
		}
		if rem < m {
			m = rem
		}
	}

	n, err := l.r.Read(p[:m])
	l.read += int64(n)
	return n, err
}

// ReadBytes reports how many bytes have been consumed so far.
func (l *limitErrorReader) ReadBytes() int64 {
	return l.read
}
