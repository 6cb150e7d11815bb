package wsutil

import "log/slog"

// SafeSend delivers data to a client send channel without blocking and
// without panicking if the channel was closed under us. A full or closed
// channel drops the message; slow consumers must not stall a game loop.
func SafeSend(ch chan []byte, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("send to closed channel recovered", "tag", "wsutil", "panic", r)
		}
	}()
	select {
	case ch <- data:
	default:
	}
}
