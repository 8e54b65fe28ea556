package mitch

import "fmt"

// Asset classes for ticker ID encoding.
const (
	AssetEquities       uint8 = 0x0
	AssetCorporateBonds uint8 = 0x1
	AssetSovereignDebt  uint8 = 0x2
	AssetForex          uint8 = 0x3
	AssetCommodities    uint8 = 0x4
	AssetRealEstate     uint8 = 0x5
	AssetCrypto         uint8 = 0x6
	AssetPrivateMarkets uint8 = 0x7
	AssetCollectibles   uint8 = 0x8
	AssetInfrastructure uint8 = 0x9
	AssetIndices        uint8 = 0xA
)

// Instrument types for ticker ID encoding.
const (
	InstrumentSpot          uint8 = 0x0
	InstrumentFuture        uint8 = 0x1
	InstrumentForward       uint8 = 0x2
	InstrumentSwap          uint8 = 0x3
	InstrumentPerpetualSwap uint8 = 0x4
	InstrumentCfd           uint8 = 0x5
)

// TickerID is the 64-bit instrument identifier carried by every body
// type. Bit layout, high to low:
//
//	63-60 instrument type
//	59-56 base asset class
//	55-40 base asset ID
//	39-36 quote asset class
//	35-20 quote asset ID
//	19-0  sub-type
type TickerID uint64

// Ticker holds the unpacked components of a TickerID.
type Ticker struct {
	InstrumentType uint8
	BaseClass      uint8
	BaseID         uint16
	QuoteClass     uint8
	QuoteID        uint16
	SubType        uint32
}

// PackTickerID assembles a ticker ID from its components. subType must
// fit in 20 bits.
func PackTickerID(instrument, baseClass uint8, baseID uint16, quoteClass uint8, quoteID uint16, subType uint32) (TickerID, error) {
	if subType > 0xFFFFF {
		return 0, fmt.Errorf("mitch: sub-type %#x exceeds 20 bits", subType)
	}
	base := uint64(baseClass&0xF)<<16 | uint64(baseID)
	quote := uint64(quoteClass&0xF)<<16 | uint64(quoteID)
	id := uint64(instrument&0xF)<<60 | base<<40 | quote<<20 | uint64(subType)
	return TickerID(id), nil
}

// Unpack splits the ID back into its components.
func (id TickerID) Unpack() Ticker {
	raw := uint64(id)
	base := (raw >> 40) & 0xFFFFF
	quote := (raw >> 20) & 0xFFFFF
	return Ticker{
		InstrumentType: uint8(raw >> 60),
		BaseClass:      uint8(base>>16) & 0xF,
		BaseID:         uint16(base),
		QuoteClass:     uint8(quote>>16) & 0xF,
		QuoteID:        uint16(quote),
		SubType:        uint32(raw & 0xFFFFF),
	}
}
