package mitch

// OrderBody is one order lifecycle event (32 bytes on the wire).
//
// Layout: ticker_id u64 | order_id u32 | price f64 | quantity u32 |
// type_and_side u8 | expiry u48 | 1 reserved byte. TypeAndSide packs the
// side in bit 0 and the order type in bits 1-7; use CombineTypeAndSide
// and the Extract helpers.
type OrderBody struct {
	TickerID    uint64
	OrderID     uint32
	Price       float64
	Quantity    uint32
	TypeAndSide uint8
	Expiry      Timestamp48 // zero for GTC
}

// Encode writes the order into the first OrderSize bytes of buf.
func (o *OrderBody) Encode(buf []byte) (int, error) {
	if len(buf) < OrderSize {
		return 0, ErrBufferTooSmall
	}
	putU64(buf[0:8], o.TickerID)
	putU32(buf[8:12], o.OrderID)
	putF64(buf[12:20], o.Price)
	putU32(buf[20:24], o.Quantity)
	buf[24] = o.TypeAndSide
	copy(buf[25:31], o.Expiry[:])
	buf[31] = 0
	return OrderSize, nil
}

// Decode reads the order from the first OrderSize bytes of buf.
func (o *OrderBody) Decode(buf []byte) (int, error) {
	if len(buf) < OrderSize {
		return 0, ErrBufferTooSmall
	}
	o.TickerID = getU64(buf[0:8])
	o.OrderID = getU32(buf[8:12])
	o.Price = getF64(buf[12:20])
	o.Quantity = getU32(buf[20:24])
	o.TypeAndSide = buf[24]
	copy(o.Expiry[:], buf[25:31])
	return OrderSize, nil
}

// Side returns the order side from the packed type_and_side byte.
func (o *OrderBody) OrderSide() uint8 {
	return ExtractSide(o.TypeAndSide)
}

// OrderType returns the order type from the packed type_and_side byte.
func (o *OrderBody) OrderType() uint8 {
	return ExtractOrderType(o.TypeAndSide)
}
