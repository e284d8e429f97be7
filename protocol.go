package kickoff

import (
	"encoding/binary"
	"fmt"
	"io"
)

// DefaultPort is the task server's default TCP port.
const DefaultPort = 3355

// requestType is the one-byte opcode that starts every request.
type requestType uint8

const (
	reqGetCommand = requestType(iota)
	reqGetSchedule
	reqGetStatus
	reqGetStats
	reqGetTasksByStates
	reqCreate
	reqTakeToRun
	reqHeartbeat
	reqMarkFinished
	reqMarkShouldCancel
)

// replyType is the one-byte status that starts every response.
// Anything nonzero is a failure.
type replyType uint8

const (
	replyOK = replyType(iota)
	replyFailed
	replyBadRequest
)

// maxFrameSize bounds a single request or response. Tasks carry a
// command line and a few tag strings, nowhere near this.
const maxFrameSize = 1 << 20

// writeFrame writes one length-prefixed message.
func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxFrameSize {
		return fmt.Errorf("frame too large: %d bytes", len(payload))
	}
	var head [4]byte
	binary.LittleEndian.PutUint32(head[:], uint32(len(payload)))
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readFrame reads one length-prefixed message. It returns io.EOF only
// when the connection closed cleanly between messages.
func readFrame(r io.Reader) ([]byte, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("short frame header: %w", err)
		}
		return nil, err
	}
	n := binary.LittleEndian.Uint32(head[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("frame too large: %d bytes", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("short frame body: %w", err)
	}
	return payload, nil
}
