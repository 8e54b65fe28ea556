package feed

import (
	"io"

	"github.com/gorilla/websocket"
)

// WSStream adapts a websocket connection to io.ReadWriter so the framer
// can treat it like any byte stream. Binary frames are concatenated on
// the read side; each Write goes out as one binary frame.
type WSStream struct {
	conn   *websocket.Conn
	reader io.Reader
}

func NewWSStream(conn *websocket.Conn) *WSStream {
	return &WSStream{conn: conn}
}

func (w *WSStream) Read(p []byte) (int, error) {
	for {
		if w.reader == nil {
			msgType, r, err := w.conn.NextReader()
			if err != nil {
				return 0, err
			}
			if msgType != websocket.BinaryMessage {
				continue
			}
			w.reader = r
		}
		n, err := w.reader.Read(p)
		if err == io.EOF {
			// Frame exhausted, move on to the next one.
			w.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (w *WSStream) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WSStream) Close() error {
	return w.conn.Close()
}
