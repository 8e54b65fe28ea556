package mitch

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestTimestamp48RoundTrip(t *testing.T) {
	for _, ns := range []uint64{0, 1, 0xFFFFFFFFFFFF, 86399999999999} {
		ts := NewTimestamp48(ns)
		if got := ts.Nanos(); got != ns {
			t.Fatalf("timestamp %d round-tripped to %d", ns, got)
		}
	}
	// Values above 48 bits truncate.
	ts := NewTimestamp48(1 << 50)
	if ts.Nanos() != 0 {
		t.Fatalf("expected 48-bit truncation, got %d", ts.Nanos())
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Type: MsgTypeTrade, Timestamp: NewTimestamp48(123456789), Count: 42}
	var buf [HeaderSize]byte
	if _, err := h.Encode(buf[:]); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got Header
	if _, err := got.Decode(buf[:]); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != h {
		t.Fatalf("header mismatch: %+v != %+v", got, h)
	}
	if _, err := h.Encode(buf[:7]); !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("expected ErrBufferTooSmall, got %v", err)
	}
}

func TestTradeRoundTrip(t *testing.T) {
	tr := TradeBody{
		TickerID: 0x00006F001CD00000,
		Price:    1.2345,
		Quantity: 100,
		TradeID:  1001,
		Side:     SideSell,
	}
	var buf [TradeSize]byte
	n, err := tr.Encode(buf[:])
	if err != nil || n != TradeSize {
		t.Fatalf("encode: n=%d err=%v", n, err)
	}
	var got TradeBody
	if _, err := got.Decode(buf[:]); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != tr {
		t.Fatalf("trade mismatch: %+v != %+v", got, tr)
	}
}

func TestTradeEndianness(t *testing.T) {
	tr := TradeBody{TickerID: 0x00006F001CD00000}
	var buf [TradeSize]byte
	if _, err := tr.Encode(buf[:]); err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0x00, 0x00, 0x6F, 0x00, 0x1C, 0xD0, 0x00, 0x00}
	if !bytes.Equal(buf[0:8], want) {
		t.Fatalf("ticker_id bytes %x, want %x", buf[0:8], want)
	}
}

func TestTradePaddingZeroedAndIgnored(t *testing.T) {
	var buf [TradeSize]byte
	for i := range buf {
		buf[i] = 0xFF
	}
	tr := TradeBody{TickerID: 1, Side: SideBuy}
	if _, err := tr.Encode(buf[:]); err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i := 25; i < TradeSize; i++ {
		if buf[i] != 0 {
			t.Fatalf("reserved byte %d not zeroed: %x", i, buf[i])
		}
	}
	// Decoders must not depend on reserved values.
	for i := 25; i < TradeSize; i++ {
		buf[i] = 0xAA
	}
	var got TradeBody
	if _, err := got.Decode(buf[:]); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != tr {
		t.Fatalf("trade mismatch after dirty padding: %+v != %+v", got, tr)
	}
}

func TestOrderRoundTrip(t *testing.T) {
	o := OrderBody{
		TickerID:    2,
		OrderID:     2001,
		Price:       98.5,
		Quantity:    25,
		TypeAndSide: CombineTypeAndSide(OrderTypeLimit, SideBuy),
		Expiry:      NewTimestamp48(1700000000000),
	}
	var buf [OrderSize]byte
	if _, err := o.Encode(buf[:]); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got OrderBody
	if _, err := got.Decode(buf[:]); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != o {
		t.Fatalf("order mismatch: %+v != %+v", got, o)
	}
	if got.OrderType() != OrderTypeLimit || got.OrderSide() != SideBuy {
		t.Fatalf("type_and_side extraction: type=%d side=%d", got.OrderType(), got.OrderSide())
	}
}

func TestTypeAndSideBits(t *testing.T) {
	cases := []struct {
		orderType, side, packed uint8
	}{
		{OrderTypeMarket, SideBuy, 0x00},
		{OrderTypeMarket, SideSell, 0x01},
		{OrderTypeLimit, SideBuy, 0x02},
		{OrderTypeLimit, SideSell, 0x03},
		{OrderTypeStop, SideSell, 0x05},
		{OrderTypeCancel, SideBuy, 0x06},
	}
	for _, c := range cases {
		got := CombineTypeAndSide(c.orderType, c.side)
		if got != c.packed {
			t.Fatalf("combine(%d,%d)=%#x want %#x", c.orderType, c.side, got, c.packed)
		}
		if ExtractOrderType(got) != c.orderType || ExtractSide(got) != c.side {
			t.Fatalf("extract(%#x) = (%d,%d)", got, ExtractOrderType(got), ExtractSide(got))
		}
	}
}

func TestTickerRoundTrip(t *testing.T) {
	tk := TickerBody{
		TickerID:  7,
		BidPrice:  1.08341,
		AskPrice:  1.08344,
		BidVolume: 1_500_000,
		AskVolume: 900_000,
	}
	var buf [TickerSize]byte
	if _, err := tk.Encode(buf[:]); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got TickerBody
	if _, err := got.Decode(buf[:]); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != tk {
		t.Fatalf("ticker mismatch: %+v != %+v", got, tk)
	}
}

func TestFloatBitPatternPreserved(t *testing.T) {
	values := []float64{0, math.Inf(1), math.Inf(-1), math.NaN(), -0.0, 1e-308}
	for _, v := range values {
		tk := TickerBody{BidPrice: v}
		var buf [TickerSize]byte
		if _, err := tk.Encode(buf[:]); err != nil {
			t.Fatalf("encode: %v", err)
		}
		var got TickerBody
		if _, err := got.Decode(buf[:]); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if math.Float64bits(got.BidPrice) != math.Float64bits(v) {
			t.Fatalf("bit pattern changed: %x != %x", math.Float64bits(got.BidPrice), math.Float64bits(v))
		}
	}
}

func TestOrderBookRoundTrip(t *testing.T) {
	for _, numTicks := range []uint16{0, 1, 500, 65535} {
		volumes := make([]uint32, numTicks)
		for i := range volumes {
			volumes[i] = uint32(i) * 3
		}
		book := OrderBookBody{
			TickerID:  11,
			FirstTick: 50000.25,
			TickSize:  0.25,
			NumTicks:  numTicks,
			Side:      SideSell,
		}
		buf := make([]byte, book.EncodedSize())
		n, err := book.Encode(buf, volumes)
		if err != nil {
			t.Fatalf("numTicks=%d encode: %v", numTicks, err)
		}
		if n != OrderBookPrefixSize+4*int(numTicks) {
			t.Fatalf("numTicks=%d encoded %d bytes", numTicks, n)
		}
		var got OrderBookBody
		gotVolumes, dn, err := got.Decode(buf)
		if err != nil {
			t.Fatalf("numTicks=%d decode: %v", numTicks, err)
		}
		if dn != n || got != book {
			t.Fatalf("numTicks=%d mismatch: n=%d book=%+v", numTicks, dn, got)
		}
		if len(gotVolumes) != int(numTicks) {
			t.Fatalf("numTicks=%d volume count %d", numTicks, len(gotVolumes))
		}
		for i := range volumes {
			if gotVolumes[i] != volumes[i] {
				t.Fatalf("volume %d: %d != %d", i, gotVolumes[i], volumes[i])
			}
		}
	}
}

func TestOrderBookVolumeCountMismatch(t *testing.T) {
	book := OrderBookBody{NumTicks: 3}
	buf := make([]byte, book.EncodedSize())
	if _, err := book.Encode(buf, make([]uint32, 2)); !errors.Is(err, ErrCountMismatch) {
		t.Fatalf("expected ErrCountMismatch, got %v", err)
	}
}

func TestOrderBookDecodeTruncated(t *testing.T) {
	book := OrderBookBody{NumTicks: 10}
	buf := make([]byte, book.EncodedSize())
	if _, err := book.Encode(buf, make([]uint32, 10)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got OrderBookBody
	if _, _, err := got.Decode(buf[:len(buf)-1]); !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("expected ErrBufferTooSmall, got %v", err)
	}
	if _, _, err := got.Decode(buf[:OrderBookPrefixSize-1]); !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("short prefix: expected ErrBufferTooSmall, got %v", err)
	}
}

func TestOrderBookPriceAt(t *testing.T) {
	asks := OrderBookBody{FirstTick: 100, TickSize: 0.5, Side: SideSell}
	if got := asks.PriceAt(4); got != 102 {
		t.Fatalf("ask level 4 price %v", got)
	}
	bids := OrderBookBody{FirstTick: 100, TickSize: 0.5, Side: SideBuy}
	if got := bids.PriceAt(4); got != 98 {
		t.Fatalf("bid level 4 price %v", got)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	ts := NewTimestamp48(42)
	msg, err := NewTradeMessage(ts, []TradeBody{
		{TickerID: 1, Price: 1.2345, Quantity: 100, TradeID: 1001, Side: SideBuy},
		{TickerID: 1, Price: 1.2346, Quantity: 50, TradeID: 1002, Side: SideSell},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	buf := make([]byte, msg.EncodedSize())
	n, err := msg.Encode(buf)
	if err != nil || n != HeaderSize+2*TradeSize {
		t.Fatalf("encode: n=%d err=%v", n, err)
	}
	var got Message
	dn, err := got.Decode(buf)
	if err != nil || dn != n {
		t.Fatalf("decode: n=%d err=%v", dn, err)
	}
	if got.Header.Count != 2 || len(got.Trades) != 2 || got.Trades[1].TradeID != 1002 {
		t.Fatalf("decoded message %+v", got)
	}
}

func TestMessageOrderBookCountInvariant(t *testing.T) {
	book := OrderBookBody{TickerID: 5, NumTicks: 2, Side: SideBuy}
	msg, err := NewOrderBookMessage(NewTimestamp48(1), book, []uint32{10, 20})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if msg.Header.Count != 1 {
		t.Fatalf("order book header count %d", msg.Header.Count)
	}
	buf := make([]byte, msg.EncodedSize())
	if _, err := msg.Encode(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	// A count other than 1 must be rejected on decode.
	buf[7] = 2
	var got Message
	if _, err := got.Decode(buf); !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
}

func TestMessageUnknownType(t *testing.T) {
	buf := make([]byte, HeaderSize+TradeSize)
	buf[0] = 'x'
	buf[7] = 1
	var got Message
	if _, err := got.Decode(buf); !errors.Is(err, ErrUnknownMessageType) {
		t.Fatalf("expected ErrUnknownMessageType, got %v", err)
	}
}

func TestChannelID(t *testing.T) {
	id := NewChannelID(101, MsgTypeTicker)
	if id.Provider() != 101 || id.MsgType() != MsgTypeTicker {
		t.Fatalf("components: provider=%d type=%c", id.Provider(), id.MsgType())
	}
	if !id.Valid() {
		t.Fatalf("expected valid channel id")
	}
	if bad := ChannelID(uint32(id) | 1); bad.Valid() {
		t.Fatalf("reserved byte must be zero")
	}
	if got := TopicPattern(101, "*"); got != "0065*" {
		t.Fatalf("pattern %q", got)
	}
	if got := TopicPattern(101, "t"); got != NewChannelID(101, 't').String() {
		t.Fatalf("single-type pattern %q", got)
	}
}

func TestTickerIDPackUnpack(t *testing.T) {
	id, err := PackTickerID(InstrumentSpot, AssetCrypto, 1, AssetForex, 840, 0)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	got := id.Unpack()
	if got.BaseClass != AssetCrypto || got.BaseID != 1 || got.QuoteClass != AssetForex || got.QuoteID != 840 {
		t.Fatalf("unpacked %+v", got)
	}
	if _, err := PackTickerID(InstrumentSpot, AssetCrypto, 1, AssetForex, 840, 0x100000); err == nil {
		t.Fatalf("expected sub-type overflow error")
	}
}
