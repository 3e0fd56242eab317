// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"fmt"
	"io"
)

// peekReader buffers the first bytes of a stream so they can be inspected
// for format detection and still be delivered to the consumer afterwards.
type peekReader struct {
	r    io.Reader
	head []byte
	off  int
}

// newPeekReader reads up to size bytes from r. A short read at EOF is not
// an error; Head simply returns fewer bytes.
func newPeekReader(r io.Reader, size int) (*peekReader, error) {
	buf := make([]byte, size)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("cannot read stream head: %w", err)
	}
	return &peekReader{r: r, head: buf[:n]}, nil
}

// Head returns the buffered stream head. It stays valid regardless of how
// much has been read since.
func (p *peekReader) Head() []byte {
	return p.head
}

// Read serves the buffered head first, then continues with the underlying
// stream.
func (p *peekReader) Read(b []byte) (int, error) {
	if p.off < len(p.head) {
		n := copy(b, p.head[p.off:])
		p.off += n
		return n, nil
	}
	return p.r.Read(b)
}
