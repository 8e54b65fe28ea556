package mitch

// Header is the unified 8-byte message header. Count is the number of
// body entries that follow; order-book messages always carry exactly one.
type Header struct {
	Type      byte
	Timestamp Timestamp48
	Count     uint8
}

// Encode writes the header into the first HeaderSize bytes of buf. The
// timestamp bytes are copied verbatim; the tag value is not validated,
// that is the framer's job.
func (h *Header) Encode(buf []byte) (int, error) {
	if len(buf) < HeaderSize {
		return 0, ErrBufferTooSmall
	}
	buf[0] = h.Type
	copy(buf[1:7], h.Timestamp[:])
	buf[7] = h.Count
	return HeaderSize, nil
}

// Decode reads the header from the first HeaderSize bytes of buf.
func (h *Header) Decode(buf []byte) (int, error) {
	if len(buf) < HeaderSize {
		return 0, ErrBufferTooSmall
	}
	h.Type = buf[0]
	copy(h.Timestamp[:], buf[1:7])
	h.Count = buf[7]
	return HeaderSize, nil
}
