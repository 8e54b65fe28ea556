// Package frame reads and writes self-delimited MITCH messages on an
// ordered byte stream. The reader assembles exactly one complete message
// into a caller-supplied buffer, computing the body length from the
// header — and, for order-book messages, from the entry count inside the
// partially read prefix — before any body byte is consumed past a
// capacity check. The writer pushes a complete message through partial
// writes or fails.
package frame

import (
	"fmt"
	"io"

	"mitchwire/mitch"
)

// ReadMessage reads one complete message from r into buf and returns the
// total byte count (header included). len(buf) is the hard message-size
// cap: it bounds the peer-controlled entry counts before the variable
// part is read, so a hostile num_ticks can never drive a read or an
// allocation past the buffer. On failure the buffer holds at most the
// header and, for order-book messages, the 32-byte prefix.
//
// A stream that ends before the required bytes arrive is a transport
// failure for this attempt; there is no retry here.
func ReadMessage(r io.Reader, buf []byte) (int, error) {
	if len(buf) < mitch.HeaderSize {
		return 0, fmt.Errorf("%w: %d bytes cannot hold a header", mitch.ErrBufferTooSmall, len(buf))
	}
	if _, err := io.ReadFull(r, buf[:mitch.HeaderSize]); err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}

	var hdr mitch.Header
	if _, err := hdr.Decode(buf); err != nil {
		return 0, err
	}

	if hdr.Type == mitch.MsgTypeOrderBook {
		return readOrderBookBody(r, buf, hdr)
	}

	bodyLen := int(hdr.Count) * mitch.FixedBodySize
	if mitch.HeaderSize+bodyLen > len(buf) {
		return 0, fmt.Errorf("%w: message is %d bytes, buffer %d",
			mitch.ErrBufferTooSmall, mitch.HeaderSize+bodyLen, len(buf))
	}
	if bodyLen > 0 {
		if _, err := io.ReadFull(r, buf[mitch.HeaderSize:mitch.HeaderSize+bodyLen]); err != nil {
			return 0, fmt.Errorf("read body: %w", err)
		}
	}
	return mitch.HeaderSize + bodyLen, nil
}

// readOrderBookBody handles the only variable-length body type. The
// 32-byte prefix is read first, num_ticks is peeked at its fixed offset
// without decoding the record, and the total length is checked against
// the buffer before the volume tail is read.
func readOrderBookBody(r io.Reader, buf []byte, hdr mitch.Header) (int, error) {
	if hdr.Count != 1 {
		return 0, fmt.Errorf("%w: order book count %d, want 1", mitch.ErrProtocolViolation, hdr.Count)
	}
	if mitch.HeaderSize+mitch.OrderBookPrefixSize > len(buf) {
		return 0, fmt.Errorf("%w: buffer %d cannot hold an order book prefix",
			mitch.ErrBufferTooSmall, len(buf))
	}
	prefix := buf[mitch.HeaderSize : mitch.HeaderSize+mitch.OrderBookPrefixSize]
	if _, err := io.ReadFull(r, prefix); err != nil {
		return 0, fmt.Errorf("read order book prefix: %w", err)
	}

	// num_ticks sits at bytes 24-25 of the prefix, big-endian. int
	// arithmetic cannot wrap for a 16-bit count.
	numTicks := int(prefix[24])<<8 | int(prefix[25])
	bodyLen := mitch.OrderBookPrefixSize + mitch.VolumeEntrySize*numTicks
	if mitch.HeaderSize+bodyLen > len(buf) {
		return 0, fmt.Errorf("%w: message is %d bytes (%d ticks), buffer %d",
			mitch.ErrBufferTooSmall, mitch.HeaderSize+bodyLen, numTicks, len(buf))
	}
	if numTicks > 0 {
		tail := buf[mitch.HeaderSize+mitch.OrderBookPrefixSize : mitch.HeaderSize+bodyLen]
		if _, err := io.ReadFull(r, tail); err != nil {
			return 0, fmt.Errorf("read order book volumes: %w", err)
		}
	}
	return mitch.HeaderSize + bodyLen, nil
}

// WriteMessage writes msg to w, looping over partial writes. The caller
// sees all-or-error: either every byte was accepted or an error is
// returned.
func WriteMessage(w io.Writer, msg []byte) error {
	for len(msg) > 0 {
		n, err := w.Write(msg)
		if err != nil {
			return fmt.Errorf("write message: %w", err)
		}
		if n <= 0 {
			return fmt.Errorf("write message: %w", io.ErrShortWrite)
		}
		msg = msg[n:]
	}
	return nil
}
