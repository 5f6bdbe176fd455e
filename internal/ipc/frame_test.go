package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestFrame_Header(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, opHandshake, handshake{Version: 1, ClientID: "42"}); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	raw := buf.Bytes()
	if got := binary.LittleEndian.Uint32(raw[0:4]); got != 0 {
		t.Errorf("expected opcode 0, got %d", got)
	}
	body := `{"v":1,"client_id":"42"}`
	if got := binary.LittleEndian.Uint32(raw[4:8]); int(got) != len(body) {
		t.Errorf("expected length %d, got %d", len(body), got)
	}
	if string(raw[8:]) != body {
		t.Errorf("unexpected body %s", raw[8:])
	}

	op, got, err := readFrame(&buf)
	if err != nil || op != opHandshake || string(got) != body {
		t.Errorf("readFrame: op %d body %s err %v", op, got, err)
	}
}

func TestFrame_RejectsOversized(t *testing.T) {
	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(opFrame))
	binary.LittleEndian.PutUint32(header[4:8], maxFrameSize+1)

	if _, _, err := readFrame(bytes.NewReader(header[:])); !errors.Is(err, errFrameTooLarge) {
		t.Errorf("expected errFrameTooLarge, got %v", err)
	}
}

func TestFrame_TruncatedBody(t *testing.T) {
	var header [8]byte
	binary.LittleEndian.PutUint32(header[4:8], 10)

	if _, _, err := readFrame(bytes.NewReader(append(header[:], 'x'))); err == nil {
		t.Error("expected error for a truncated body")
	}
}
