package visca

import (
	"encoding/binary"
	"io"
	"sync"
)

// IPWriter wraps each frame written to it in VISCA-over-IP framing, as
// used by network cameras listening on UDP 52381.
type IPWriter struct {
	w io.Writer

	mu     sync.Mutex
	seqNum uint32
}

// NewIPWriter returns an IPWriter sending packets to w.
func NewIPWriter(w io.Writer) *IPWriter {
	return &IPWriter{w: w}
}

// Write sends one VISCA frame as a single packet. It reports len(p) on
// success so callers see the frame, not the header.
func (w *IPWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	packet := buildVISCAOverIP(p, w.seqNum)
	w.seqNum++
	w.mu.Unlock()

	if _, err := w.w.Write(packet); err != nil {
		return 0, err
	}
	return len(p), nil
}

// buildVISCAOverIP wraps a VISCA payload in VISCA-over-IP framing
func buildVISCAOverIP(viscaPayload []byte, seq uint32) []byte {
	// VISCA over IP header (8 bytes):
	// Bytes 0-1: Message type (0x01 0x00 for command)
	// Bytes 2-3: Payload length (big endian)
	// Bytes 4-7: Sequence number (big endian)
	packet := make([]byte, 8, 8+len(viscaPayload))
	packet[0] = 0x01
	packet[1] = 0x00
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(viscaPayload)))
	binary.BigEndian.PutUint32(packet[4:8], seq)
	return append(packet, viscaPayload...)
}
