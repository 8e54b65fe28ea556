package mitch

// TickerBody is one top-of-book quote snapshot (32 bytes on the wire,
// no padding).
//
// Layout: ticker_id u64 | bid_price f64 | ask_price f64 | bid_volume u32 |
// ask_volume u32.
type TickerBody struct {
	TickerID  uint64
	BidPrice  float64
	AskPrice  float64
	BidVolume uint32
	AskVolume uint32
}

// Encode writes the quote into the first TickerSize bytes of buf.
func (tk *TickerBody) Encode(buf []byte) (int, error) {
	if len(buf) < TickerSize {
		return 0, ErrBufferTooSmall
	}
	putU64(buf[0:8], tk.TickerID)
	putF64(buf[8:16], tk.BidPrice)
	putF64(buf[16:24], tk.AskPrice)
	putU32(buf[24:28], tk.BidVolume)
	putU32(buf[28:32], tk.AskVolume)
	return TickerSize, nil
}

// Decode reads the quote from the first TickerSize bytes of buf.
func (tk *TickerBody) Decode(buf []byte) (int, error) {
	if len(buf) < TickerSize {
		return 0, ErrBufferTooSmall
	}
	tk.TickerID = getU64(buf[0:8])
	tk.BidPrice = getF64(buf[8:16])
	tk.AskPrice = getF64(buf[16:24])
	tk.BidVolume = getU32(buf[24:28])
	tk.AskVolume = getU32(buf[28:32])
	return TickerSize, nil
}
