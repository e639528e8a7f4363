package source

import (
	"io"
	"os"
	"time"
)

// OpenFile creates a Reader replaying a raw capture. Bytes are released at
// the pace of the baud rate so a polling receiver sees realistic gaps.
func OpenFile(path string) *Reader {
	return NewReader(path, func(baudRate int) (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return Paced(f, baudRate), nil
	}, DefaultBufferSize)
}

// Paced slows down reads from stream to the baud rate.
// A non-positive baud rate disables pacing.
func Paced(stream io.ReadCloser, baudRate int) io.ReadCloser {
	if baudRate <= 0 {
		return stream
	}
	return &pacedReader{
		ReadCloser: stream,
		byteTime:   time.Second * bitsPerByte / time.Duration(baudRate),
	}
}

type pacedReader struct {
	io.ReadCloser
	byteTime time.Duration
}

func (r *pacedReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		time.Sleep(time.Duration(n) * r.byteTime)
	}
	return n, err
}
