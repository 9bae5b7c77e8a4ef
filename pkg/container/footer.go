package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	// FooterSize is the fixed size of the footer in bytes
	FooterSize = 48
	// FooterMagic identifies a block container
	FooterMagic = uint64(0xB10CB10CFACEFEED)
	// CurrentVersion is the current file format version
	CurrentVersion = uint32(1)
)

var (
	ErrInvalidMagic       = errors.New("invalid container magic")
	ErrChecksumMismatch   = errors.New("container checksum mismatch")
	ErrUnsupportedVersion = errors.New("unsupported container version")
)

// Footer trails every container and describes its body
type Footer struct {
	// Magic number for integrity checking
	Magic uint64
	// Version of the file format
	Version uint32
	// Codec of the body
	Codec Codec
	// Timestamp of when the container was written
	Timestamp int64
	// Size of the compressed body in bytes
	BodySize uint64
	// Checksum of the compressed body
	BodyChecksum uint64
	// Checksum of all footer fields excluding the checksum itself
	Checksum uint64
}

// NewFooter creates a footer for the given compressed body
func NewFooter(codec Codec, body []byte) *Footer {
	return &Footer{
		Magic:        FooterMagic,
		Version:      CurrentVersion,
		Codec:        codec,
		Timestamp:    time.Now().UnixNano(),
		BodySize:     uint64(len(body)),
		BodyChecksum: xxhash.Sum64(body),
	}
}

// Encode serializes the footer to a byte slice
func (f *Footer) Encode() []byte {
	result := make([]byte, FooterSize)

	binary.LittleEndian.PutUint64(result[0:8], f.Magic)
	binary.LittleEndian.PutUint32(result[8:12], f.Version)
	binary.LittleEndian.PutUint32(result[12:16], uint32(f.Codec))
	binary.LittleEndian.PutUint64(result[16:24], uint64(f.Timestamp))
	binary.LittleEndian.PutUint64(result[24:32], f.BodySize)
	binary.LittleEndian.PutUint64(result[32:40], f.BodyChecksum)

	f.Checksum = xxhash.Sum64(result[:40])
	binary.LittleEndian.PutUint64(result[40:], f.Checksum)

	return result
}

// WriteTo writes the footer to an io.Writer
func (f *Footer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Encode())
	return int64(n), err
}

// DecodeFooter parses a footer from a byte slice
func DecodeFooter(data []byte) (*Footer, error) {
	if len(data) < FooterSize {
		return nil, fmt.Errorf("footer data too small: %d bytes, expected %d",
			len(data), FooterSize)
	}

	footer := &Footer{
		Magic:        binary.LittleEndian.Uint64(data[0:8]),
		Version:      binary.LittleEndian.Uint32(data[8:12]),
		Codec:        Codec(binary.LittleEndian.Uint32(data[12:16])),
		Timestamp:    int64(binary.LittleEndian.Uint64(data[16:24])),
		BodySize:     binary.LittleEndian.Uint64(data[24:32]),
		BodyChecksum: binary.LittleEndian.Uint64(data[32:40]),
		Checksum:     binary.LittleEndian.Uint64(data[40:48]),
	}

	if footer.Magic != FooterMagic {
		return nil, fmt.Errorf("%w: %x, expected %x", ErrInvalidMagic, footer.Magic, FooterMagic)
	}

	expected := xxhash.Sum64(data[:40])
	if footer.Checksum != expected {
		return nil, fmt.Errorf("%w: footer has %d, calculated %d", ErrChecksumMismatch, footer.Checksum, expected)
	}

	if footer.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, footer.Version)
	}

	return footer, nil
}
