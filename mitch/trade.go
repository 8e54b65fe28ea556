package mitch

// TradeBody is one trade execution (32 bytes on the wire).
//
// Layout: ticker_id u64 | price f64 | quantity u32 | trade_id u32 |
// side u8 | 7 reserved bytes.
type TradeBody struct {
	TickerID uint64
	Price    float64
	Quantity uint32
	TradeID  uint32
	Side     uint8 // SideBuy or SideSell
}

// Encode writes the trade into the first TradeSize bytes of buf,
// zeroing the reserved tail.
func (t *TradeBody) Encode(buf []byte) (int, error) {
	if len(buf) < TradeSize {
		return 0, ErrBufferTooSmall
	}
	putU64(buf[0:8], t.TickerID)
	putF64(buf[8:16], t.Price)
	putU32(buf[16:20], t.Quantity)
	putU32(buf[20:24], t.TradeID)
	buf[24] = t.Side
	for i := 25; i < TradeSize; i++ {
		buf[i] = 0
	}
	return TradeSize, nil
}

// Decode reads the trade from the first TradeSize bytes of buf. Reserved
// bytes are ignored, not validated.
func (t *TradeBody) Decode(buf []byte) (int, error) {
	if len(buf) < TradeSize {
		return 0, ErrBufferTooSmall
	}
	t.TickerID = getU64(buf[0:8])
	t.Price = getF64(buf[8:16])
	t.Quantity = getU32(buf[16:20])
	t.TradeID = getU32(buf[20:24])
	t.Side = buf[24]
	return TradeSize, nil
}
