package util

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// IndexedReader provides typed little-endian random access to a seekable source. Each accessor seeks to the
// requested offset and then reads, reusing one scratch buffer. This makes the reader (and everything built on top of
// it) unsafe for concurrent use.
type IndexedReader struct {
	source io.ReadSeeker
	size   int64
	buffer []byte
}

func NewIndexedReader(source io.ReadSeeker) (*IndexedReader, error) {
	size, err := source.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to determine size of index data")
	}

	return &IndexedReader{
		source: source,
		size:   size,
		buffer: make([]byte, 1024),
	}, nil
}

// Size returns the total number of bytes of the underlying source.
func (r *IndexedReader) Size() int64 {
	return r.size
}

// read returns a slice of the internal buffer containing "length" bytes starting at "at". The returned slice is only
// valid until the next call of any accessor.
func (r *IndexedReader) read(at int64, length int) ([]byte, error) {
	if at < 0 || at+int64(length) > r.size {
		return nil, errors.Errorf("Read of %d bytes at %d is outside of the index data (size %d)", length, at, r.size)
	}

	if length > len(r.buffer) {
		r.buffer = make([]byte, length)
	}

	_, err := r.source.Seek(at, io.SeekStart)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to seek to index %d", at)
	}

	_, err = io.ReadFull(r.source, r.buffer[:length])
	if err != nil {
		return nil, errors.Wrapf(err, "Error reading %d bytes starting at index %d", length, at)
	}

	return r.buffer[:length], nil
}

func (r *IndexedReader) Uint16(at int64) (uint16, error) {
	data, err := r.read(at, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(data), nil
}

func (r *IndexedReader) Uint32(at int64) (uint32, error) {
	data, err := r.read(at, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

func (r *IndexedReader) Int32(at int64) (int32, error) {
	value, err := r.Uint32(at)
	return int32(value), err
}

// Uint16s reads "count" consecutive uint16 values starting at "at".
func (r *IndexedReader) Uint16s(at int64, count int) ([]uint16, error) {
	data, err := r.read(at, 2*count)
	if err != nil {
		return nil, err
	}

	values := make([]uint16, count)
	for i := range values {
		values[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	return values, nil
}

// Int32s reads "count" consecutive int32 values starting at "at".
func (r *IndexedReader) Int32s(at int64, count int) ([]int32, error) {
	data, err := r.read(at, 4*count)
	if err != nil {
		return nil, err
	}

	values := make([]int32, count)
	for i := range values {
		values[i] = int32(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return values, nil
}

// Bytes returns a copy of "length" bytes starting at "at".
func (r *IndexedReader) Bytes(at int64, length int) ([]byte, error) {
	data, err := r.read(at, length)
	if err != nil {
		return nil, err
	}
	return append([]byte{}, data...), nil
}
