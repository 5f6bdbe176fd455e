package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

type opcode uint32

const (
	opHandshake opcode = 0
	opFrame     opcode = 1
	opClose     opcode = 2
	opPing      opcode = 3
	opPong      opcode = 4
)

// maxFrameSize guards against a garbage length prefix.
const maxFrameSize = 64 * 1024

var errFrameTooLarge = errors.New("ipc frame too large")

// writeFrame encodes v as JSON behind an opcode/length header, both
// little-endian uint32.
func writeFrame(w io.Writer, op opcode, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	buf := make([]byte, 8+len(body))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(op))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(body)))
	copy(buf[8:], body)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// readFrame reads one frame and returns its opcode and raw JSON body.
func readFrame(r io.Reader) (opcode, []byte, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	op := opcode(binary.LittleEndian.Uint32(header[0:4]))
	size := binary.LittleEndian.Uint32(header[4:8])
	if size > maxFrameSize {
		return 0, nil, fmt.Errorf("%w: %d bytes", errFrameTooLarge, size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("failed to read frame body: %w", err)
	}
	return op, body, nil
}
