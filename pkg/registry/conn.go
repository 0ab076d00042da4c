package registry

import (
	"fmt"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"io"
	"io/ioutil"
	"net"
	"sync"
	"time"
)

// Conn is one live websocket transport. Writes are serialized through wsem so
// control replies from the reader never interleave with relay sends.
type Conn struct {
	id          string
	raw         net.Conn
	maxSize     int64
	sendTimeout time.Duration
	wsem        chan struct{}
	closed      chan struct{}
	once        sync.Once
}

func newConn(id string, raw net.Conn, maxSize int64, sendTimeout time.Duration) *Conn {
	return &Conn{
		id:          id,
		raw:         raw,
		maxSize:     maxSize,
		sendTimeout: sendTimeout,
		wsem:        make(chan struct{}, 1),
		closed:      make(chan struct{}),
	}
}

func (c *Conn) ID() string {
	return c.id
}

// Done is closed once the connection has been released
func (c *Conn) Done() <-chan struct{} {
	return c.closed
}

// ReadText blocks until the next text message arrives. Control frames are
// answered inline and refresh the idle deadline. Zero idle means no deadline.
func (c *Conn) ReadText(idle time.Duration) ([]byte, error) {
	rd := wsutil.Reader{
		Source:         c.raw,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		OnIntermediate: c.control,
	}

	for {
		if err := c.raw.SetReadDeadline(deadline(idle)); err != nil {
			return nil, err
		}
		hdr, err := rd.NextFrame()
		if err != nil {
			return nil, err
		}
		if hdr.OpCode.IsControl() {
			if err = c.control(hdr, &rd); err != nil {
				return nil, err
			}
			continue
		}
		if hdr.OpCode&ws.OpText == 0 {
			if err = rd.Discard(); err != nil {
				return nil, err
			}
			continue
		}

		var src io.Reader = &rd
		if c.maxSize > 0 {
			src = io.LimitReader(&rd, c.maxSize+1)
		}
		p, err := ioutil.ReadAll(src)
		if err != nil {
			return nil, err
		}
		if c.maxSize > 0 && int64(len(p)) > c.maxSize {
			if err = rd.Discard(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: more than %d bytes", ErrFrameTooLarge, c.maxSize)
		}
		return p, nil
	}
}

// control answers pings and close frames. The reader has already unmasked the payload.
func (c *Conn) control(hdr ws.Header, r io.Reader) error {
	p, err := ioutil.ReadAll(r)
	if err != nil {
		return err
	}
	switch hdr.OpCode {
	case ws.OpPing:
		return c.write(ws.OpPong, p, c.sendTimeout)
	case ws.OpClose:
		code, reason := ws.ParseCloseFrameData(p)
		_ = c.write(ws.OpClose, p, c.sendTimeout)
		return fmt.Errorf("%w: %d %s", ErrPeerClosed, code, reason)
	}
	return nil
}

// write sends one frame, giving up after timeout
func (c *Conn) write(op ws.OpCode, p []byte, timeout time.Duration) error {
	if err := c.acquire(timeout); err != nil {
		return err
	}
	defer c.release()

	if err := c.raw.SetWriteDeadline(deadline(timeout)); err != nil {
		return fmt.Errorf("%w: %v", ErrStale, err)
	}
	if err := wsutil.WriteServerMessage(c.raw, op, p); err != nil {
		return fmt.Errorf("%w: %v", ErrStale, err)
	}
	return nil
}

func (c *Conn) acquire(timeout time.Duration) error {
	select {
	case <-c.closed:
		return ErrStale
	default:
	}

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case c.wsem <- struct{}{}:
		return nil
	case <-c.closed:
		return ErrStale
	case <-expired:
		return fmt.Errorf("%w: write slot not acquired in %s", ErrStale, timeout)
	}
}

func (c *Conn) release() {
	<-c.wsem
}

// close releases the transport. Safe to call more than once.
func (c *Conn) close() bool {
	released := false
	c.once.Do(func() {
		close(c.closed)
		_ = c.raw.Close()
		released = true
	})
	return released
}

func deadline(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}
