package mitch

import "fmt"

// ChannelID is a 32-bit pub/sub routing identifier:
// [market provider:16][message type:8][reserved:8]. Subscribers filter a
// shared feed by provider and message type without decoding payloads.
type ChannelID uint32

// NewChannelID builds a channel ID from a market provider ID and a
// message type tag.
func NewChannelID(provider uint16, msgType byte) ChannelID {
	return ChannelID(uint32(provider)<<16 | uint32(msgType)<<8)
}

// Provider returns the market provider component.
func (c ChannelID) Provider() uint16 {
	return uint16(c >> 16)
}

// MsgType returns the message type component.
func (c ChannelID) MsgType() byte {
	return byte(c >> 8)
}

// Valid reports whether the ID carries a defined message type and a zero
// reserved byte.
func (c ChannelID) Valid() bool {
	return ValidMsgType(c.MsgType()) && byte(c) == 0
}

// String renders the ID in the hex form used as a pub/sub topic name.
func (c ChannelID) String() string {
	return fmt.Sprintf("%08X", uint32(c))
}

// TopicPattern returns a topic match pattern for a provider. A "*" type
// matches every message type from that provider; any other value narrows
// the pattern to that single tag.
func TopicPattern(provider uint16, msgType string) string {
	if msgType == "*" {
		return fmt.Sprintf("%04X*", provider)
	}
	if msgType == "" {
		return ""
	}
	return NewChannelID(provider, msgType[0]).String()
}
