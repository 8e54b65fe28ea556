package mitch

import "fmt"

// OrderBookBody is the fixed 32-byte prefix of a depth snapshot. The
// prefix is followed on the wire by NumTicks big-endian u32 volume
// entries; volume index i sits at price FirstTick + i*TickSize for asks
// and FirstTick - i*TickSize for bids. The volumes never live inside the
// struct: they are an explicit slice passed alongside it, sized from
// NumTicks and never inferred from buffer length.
//
// Layout: ticker_id u64 | first_tick f64 | tick_size f64 | num_ticks u16 |
// side u8 | 5 reserved bytes | volumes u32[num_ticks].
type OrderBookBody struct {
	TickerID  uint64
	FirstTick float64
	TickSize  float64
	NumTicks  uint16
	Side      uint8 // 0: bids, 1: asks
}

// numTicksOffset is where the framer peeks the entry count inside the
// prefix without decoding the whole record.
const numTicksOffset = 24

// EncodedSize returns the total wire size of the snapshot,
// prefix plus volume entries.
func (b *OrderBookBody) EncodedSize() int {
	return OrderBookPrefixSize + VolumeEntrySize*int(b.NumTicks)
}

// Encode writes the prefix and the volume entries into buf and returns
// the total byte count. len(volumes) must equal NumTicks.
func (b *OrderBookBody) Encode(buf []byte, volumes []uint32) (int, error) {
	if len(volumes) != int(b.NumTicks) {
		return 0, fmt.Errorf("%w: num_ticks %d, volumes %d", ErrCountMismatch, b.NumTicks, len(volumes))
	}
	total := b.EncodedSize()
	if len(buf) < total {
		return 0, ErrBufferTooSmall
	}
	putU64(buf[0:8], b.TickerID)
	putF64(buf[8:16], b.FirstTick)
	putF64(buf[16:24], b.TickSize)
	putU16(buf[24:26], b.NumTicks)
	buf[26] = b.Side
	for i := 27; i < OrderBookPrefixSize; i++ {
		buf[i] = 0
	}
	off := OrderBookPrefixSize
	for _, v := range volumes {
		putU32(buf[off:off+VolumeEntrySize], v)
		off += VolumeEntrySize
	}
	return total, nil
}

// Decode reads the prefix, takes the entry count from it and then reads
// exactly that many volume entries. NumTicks is peer-controlled: the
// required length is computed in int, which cannot wrap for a 16-bit
// count, and checked against len(buf) before any volume byte is touched.
func (b *OrderBookBody) Decode(buf []byte) ([]uint32, int, error) {
	if len(buf) < OrderBookPrefixSize {
		return nil, 0, ErrBufferTooSmall
	}
	b.TickerID = getU64(buf[0:8])
	b.FirstTick = getF64(buf[8:16])
	b.TickSize = getF64(buf[16:24])
	b.NumTicks = getU16(buf[24:26])
	b.Side = buf[26]

	total := b.EncodedSize()
	if len(buf) < total {
		return nil, 0, fmt.Errorf("%w: need %d bytes for %d ticks, have %d",
			ErrBufferTooSmall, total, b.NumTicks, len(buf))
	}
	volumes := make([]uint32, b.NumTicks)
	off := OrderBookPrefixSize
	for i := range volumes {
		volumes[i] = getU32(buf[off : off+VolumeEntrySize])
		off += VolumeEntrySize
	}
	return volumes, total, nil
}

// PriceAt returns the price of volume entry i, signed by side.
func (b *OrderBookBody) PriceAt(i int) float64 {
	if b.Side == SideSell {
		return b.FirstTick + float64(i)*b.TickSize
	}
	return b.FirstTick - float64(i)*b.TickSize
}
