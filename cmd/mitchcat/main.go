// cmd/mitchcat/main.go
//
// mitchcat decodes a stream of framed wire messages from a capture file
// or stdin and prints one JSON line per message.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"mitchwire/frame"
	"mitchwire/mitch"
)

type output struct {
	Type      string             `json:"type"`
	Timestamp uint64             `json:"timestamp_ns"`
	Count     uint8              `json:"count"`
	Trades    []mitch.TradeBody  `json:"trades,omitempty"`
	Orders    []mitch.OrderBody  `json:"orders,omitempty"`
	Tickers   []mitch.TickerBody `json:"tickers,omitempty"`
	Book      *bookOutput        `json:"book,omitempty"`
}

type bookOutput struct {
	TickerID  uint64   `json:"ticker_id"`
	FirstTick float64  `json:"first_tick"`
	TickSize  float64  `json:"tick_size"`
	NumTicks  uint16   `json:"num_ticks"`
	Side      uint8    `json:"side"`
	Volumes   []uint32 `json:"volumes"`
}

func main() {
	inPath := flag.String("in", "-", "Input file, or - for stdin")
	flag.Parse()

	var in io.Reader = os.Stdin
	if *inPath != "-" {
		f, err := os.Open(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mitchcat: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	enc := json.NewEncoder(os.Stdout)
	buf := make([]byte, mitch.MaxMessageSize)

	for {
		n, err := frame.ReadMessage(in, buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			fmt.Fprintf(os.Stderr, "mitchcat: %v\n", err)
			os.Exit(1)
		}

		var msg mitch.Message
		if _, err := msg.Decode(buf[:n]); err != nil {
			fmt.Fprintf(os.Stderr, "mitchcat: %v\n", err)
			os.Exit(1)
		}

		out := output{
			Type:      string(msg.Header.Type),
			Timestamp: msg.Header.Timestamp.Nanos(),
			Count:     msg.Header.Count,
			Trades:    msg.Trades,
			Orders:    msg.Orders,
			Tickers:   msg.Tickers,
		}
		if msg.Book != nil {
			out.Book = &bookOutput{
				TickerID:  msg.Book.TickerID,
				FirstTick: msg.Book.FirstTick,
				TickSize:  msg.Book.TickSize,
				NumTicks:  msg.Book.NumTicks,
				Side:      msg.Book.Side,
				Volumes:   msg.Volumes,
			}
		}
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "mitchcat: %v\n", err)
			os.Exit(1)
		}
	}
}
