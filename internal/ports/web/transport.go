package web

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"trackdown/internal/domain"
)

// sendQueueSize bounds buffered snapshots per connection. Snapshots are
// whole-state, so dropping an old one in favor of a newer one is safe.
const sendQueueSize = 16

var errTransportClosed = errors.New("transport closed")

// connTransport adapts a websocket connection to the broadcast-sink
// port. Writes go through a buffered queue drained by a single writer
// goroutine, so a slow client never blocks a session's lock.
type connTransport struct {
	conn *websocket.Conn
	out  chan *domain.SessionState

	closeOnce sync.Once
	closed    chan struct{}
}

func newConnTransport(conn *websocket.Conn) *connTransport {
	t := &connTransport{
		conn:   conn,
		out:    make(chan *domain.SessionState, sendQueueSize),
		closed: make(chan struct{}),
	}
	go t.writeLoop()
	return t
}

func (t *connTransport) writeLoop() {
	for {
		select {
		case state := <-t.out:
			if err := t.conn.WriteJSON(state); err != nil {
				t.Close()
				return
			}
		case <-t.closed:
			return
		}
	}
}

// Send enqueues a snapshot. When the queue is full the oldest entry is
// discarded; every entry is a complete snapshot so clients only ever
// miss superseded state.
func (t *connTransport) Send(state *domain.SessionState) error {
	select {
	case <-t.closed:
		return errTransportClosed
	default:
	}

	for {
		select {
		case t.out <- state:
			return nil
		default:
			select {
			case <-t.out:
			default:
			}
		}
	}
}

func (t *connTransport) IsOpen() bool {
	select {
	case <-t.closed:
		return false
	default:
		return true
	}
}

func (t *connTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
		t.conn.Close()
	})
	return nil
}
