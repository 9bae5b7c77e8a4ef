// Package container stores compressed block sequences in .bvc files.
//
// A container is a varint encoded body, optionally compressed, followed by a
// fixed size footer:
//
//	body:   fps, frames, rows, slab width, partition count
//	        per partition: index, block count
//	        per block: start time, frame span, order, start height, row span, color
//	footer: magic, version, codec, timestamp, body size, body checksum, checksum
//
// Only distinct blocks are stored. Render expands them back into frames.
package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/KevoDB/blockvid/pkg/block"
)

// ErrCorrupt is returned when a body does not describe a valid sequence.
var ErrCorrupt = errors.New("corrupt container body")

// PartitionBlocks holds the distinct blocks of one partition.
type PartitionBlocks struct {
	Index  int
	Blocks []block.Block
}

// Archive is the decoded content of a container.
type Archive struct {
	Codec     Codec
	Timestamp time.Time

	FPS        int
	FrameCount int
	Rows       int
	SlabWidth  int
	Partitions []PartitionBlocks
}

// FromSequence collects the distinct blocks of every partition of seq.
func FromSequence(seq *block.Sequence) (*Archive, error) {
	a := &Archive{FPS: seq.FPS, FrameCount: seq.FrameCount}
	for i, p := range seq.Partitions {
		g := p.Grid
		if i == 0 {
			a.Rows, a.SlabWidth = g.Rows(), g.Cols()
		} else if g.Rows() != a.Rows || g.Cols() != a.SlabWidth {
			return nil, block.DimensionMismatch.New("partition %d is %dx%d, expected %dx%d",
				p.Index, g.Rows(), g.Cols(), a.Rows, a.SlabWidth)
		}
		a.Partitions = append(a.Partitions, PartitionBlocks{Index: p.Index, Blocks: g.Distinct()})
	}
	return a, nil
}

// Pixels returns the number of pixels the archive represents.
func (a *Archive) Pixels() int {
	return a.FrameCount * a.Rows * a.SlabWidth * len(a.Partitions)
}

// BlockCount returns the number of stored blocks.
func (a *Archive) BlockCount() int {
	n := 0
	for _, p := range a.Partitions {
		n += len(p.Blocks)
	}
	return n
}

var (
	sharedManager    *CompressionManager
	sharedManagerErr error
	sharedManagerOne sync.Once
)

func manager() (*CompressionManager, error) {
	sharedManagerOne.Do(func() {
		sharedManager, sharedManagerErr = NewCompressionManager()
	})
	return sharedManager, sharedManagerErr
}

// Encode serializes the distinct blocks of seq into a container.
func Encode(seq *block.Sequence, codec Codec) ([]byte, error) {
	a, err := FromSequence(seq)
	if err != nil {
		return nil, err
	}
	return a.Encode(codec)
}

// Encode serializes the archive into a container.
func (a *Archive) Encode(codec Codec) ([]byte, error) {
	cm, err := manager()
	if err != nil {
		return nil, err
	}

	body, err := cm.Compress(a.marshalBody(), codec)
	if err != nil {
		return nil, fmt.Errorf("failed to compress body: %w", err)
	}

	out := make([]byte, 0, len(body)+FooterSize)
	out = append(out, body...)
	return append(out, NewFooter(codec, body).Encode()...), nil
}

// Decode parses a container produced by Encode.
func Decode(data []byte) (*Archive, error) {
	if len(data) < FooterSize {
		return nil, fmt.Errorf("%w: %d bytes is smaller than the footer", ErrCorrupt, len(data))
	}

	footer, err := DecodeFooter(data[len(data)-FooterSize:])
	if err != nil {
		return nil, err
	}

	body := data[:len(data)-FooterSize]
	if uint64(len(body)) != footer.BodySize {
		return nil, fmt.Errorf("%w: body is %d bytes, footer says %d", ErrCorrupt, len(body), footer.BodySize)
	}
	if sum := xxhash.Sum64(body); sum != footer.BodyChecksum {
		return nil, fmt.Errorf("%w: body has %d, footer says %d", ErrChecksumMismatch, sum, footer.BodyChecksum)
	}

	cm, err := manager()
	if err != nil {
		return nil, err
	}
	raw, err := cm.Decompress(body, footer.Codec)
	if err != nil {
		return nil, err
	}

	a, err := unmarshalBody(raw)
	if err != nil {
		return nil, err
	}
	a.Codec = footer.Codec
	a.Timestamp = time.Unix(0, footer.Timestamp)
	return a, nil
}

func (a *Archive) marshalBody() []byte {
	buf := make([]byte, 0, 16+a.BlockCount()*8)
	buf = binary.AppendUvarint(buf, uint64(a.FPS))
	buf = binary.AppendUvarint(buf, uint64(a.FrameCount))
	buf = binary.AppendUvarint(buf, uint64(a.Rows))
	buf = binary.AppendUvarint(buf, uint64(a.SlabWidth))
	buf = binary.AppendUvarint(buf, uint64(len(a.Partitions)))

	for _, p := range a.Partitions {
		buf = binary.AppendUvarint(buf, uint64(p.Index))
		buf = binary.AppendUvarint(buf, uint64(len(p.Blocks)))
		for _, b := range p.Blocks {
			buf = binary.AppendUvarint(buf, uint64(b.StartTime))
			buf = binary.AppendUvarint(buf, uint64(b.Frames()-1))
			buf = binary.AppendUvarint(buf, uint64(b.Order))
			buf = binary.AppendUvarint(buf, uint64(b.StartHeight))
			buf = binary.AppendUvarint(buf, uint64(b.Rows()-1))
			color := byte(0)
			if b.Color {
				color = 1
			}
			buf = append(buf, color)
		}
	}
	return buf
}

// bodyReader reads uvarints and stops at the first error.
type bodyReader struct {
	data []byte
	err  error
}

func (r *bodyReader) uvarint(limit uint64, what string) int {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.data)
	if n <= 0 {
		r.err = fmt.Errorf("%w: truncated %s", ErrCorrupt, what)
		return 0
	}
	r.data = r.data[n:]
	if v > limit {
		r.err = fmt.Errorf("%w: %s %d exceeds %d", ErrCorrupt, what, v, limit)
		return 0
	}
	return int(v)
}

func (r *bodyReader) flag(what string) bool {
	if r.err != nil {
		return false
	}
	if len(r.data) == 0 {
		r.err = fmt.Errorf("%w: truncated %s", ErrCorrupt, what)
		return false
	}
	v := r.data[0]
	r.data = r.data[1:]
	if v > 1 {
		r.err = fmt.Errorf("%w: %s byte %d", ErrCorrupt, what, v)
	}
	return v == 1
}

const maxDimension = 1 << 24

func unmarshalBody(data []byte) (*Archive, error) {
	r := &bodyReader{data: data}
	a := &Archive{
		FPS:        r.uvarint(maxDimension, "fps"),
		FrameCount: r.uvarint(maxDimension, "frame count"),
		Rows:       r.uvarint(maxDimension, "rows"),
		SlabWidth:  r.uvarint(maxDimension, "slab width"),
	}
	partitions := r.uvarint(maxDimension, "partition count")
	if r.err != nil {
		return nil, r.err
	}

	// A frame span or row span past the grid is rejected below.
	for i := 0; i < partitions && r.err == nil; i++ {
		p := PartitionBlocks{Index: r.uvarint(maxDimension, "partition index")}
		count := r.uvarint(uint64(len(r.data)), "block count")
		p.Blocks = make([]block.Block, 0, count)
		for j := 0; j < count && r.err == nil; j++ {
			var b block.Block
			b.StartTime = r.uvarint(maxDimension, "start time")
			b.EndTime = b.StartTime + r.uvarint(maxDimension, "frame span")
			b.Order = r.uvarint(maxDimension, "order")
			b.StartHeight = r.uvarint(maxDimension, "start height")
			b.EndHeight = b.StartHeight + r.uvarint(maxDimension, "row span")
			b.Color = r.flag("color")
			if r.err == nil && (b.EndTime >= a.FrameCount || b.EndHeight >= a.Rows || b.Order >= a.SlabWidth) {
				r.err = fmt.Errorf("%w: %v outside %d frames x %d rows x %d columns",
					ErrCorrupt, b, a.FrameCount, a.Rows, a.SlabWidth)
			}
			p.Blocks = append(p.Blocks, b)
		}
		a.Partitions = append(a.Partitions, p)
	}
	if r.err != nil {
		return nil, r.err
	}
	if len(r.data) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(r.data))
	}
	return a, nil
}
