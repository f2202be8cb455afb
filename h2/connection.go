package h2

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"github.com/valyala/fastrand"
	"github.com/vh2proto/engine/h2/hpack"
)

// Role distinguishes which side of the handshake a Connection plays.
type Role int8

const (
	RoleClient Role = iota
	RoleServer
)

// ClientPreface is the 24-byte sequence a client must send before any
// frame on a plain-TCP connection (§6.1).
const ClientPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// Events are the connection-scope callbacks an embedder supplies,
// mirroring §6.4's event list at connection granularity.
type Events struct {
	// OnStream fires once for each stream the peer opens with HEADERS.
	// It does not fire for streams created locally via CreateStream or
	// Promise, nor for streams named by an incoming PUSH_PROMISE (those
	// reach the parent stream's OnPromise).
	OnStream func(s *Stream)
	// OnGoAway fires when the peer sends GOAWAY.
	OnGoAway func(lastStream uint32, code ErrorCode)
}

// Connection is the multiplexer of §4.4: it owns the stream registry,
// both header tables, the connection-level flow window, and the fair
// ID-order outbound scan. It is built by merging the teacher's
// serverConn.go (inbound dispatch, settings ack, stream lifecycle) and
// conn.go (handshake, ping bookkeeping, outbound loop), which were
// near-duplicates of each other for everything this draft specifies.
type Connection struct {
	role Role
	conn net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer
	log  Logger

	mu        sync.Mutex
	streams   streamRegistry
	nextLocal uint32
	nextPush  uint32

	localValues Values
	peerValues  Values

	connFlow *FlowController // outbound: gated by WINDOW_UPDATEs the peer sends us

	// connRecvWindow/connRecvInitial are the inbound counterpart: how many
	// more bytes of DATA the peer may send across the whole connection
	// before we must top it back up with a WINDOW_UPDATE(0, ...). Kept
	// distinct from connFlow, which never gates anything we receive.
	connRecvWindow  int64
	connRecvInitial int64

	encoder *hpack.Coder // encodes frames WE send
	decoder *hpack.Coder // decodes frames the PEER sends

	pendingSeries map[uint32]*headerSeries

	pings   map[[8]byte]chan error
	pingSeq uint32

	closingLocal   bool
	closingPeer    bool
	lastPeerGOAway uint32

	events Events

	out       chan *FrameHeader
	control   chan func()
	done      chan struct{}
	closeOnce sync.Once

	rng fastrand.RNG
}

type headerSeries struct {
	frameType FrameType
	stream    uint32
	promised  uint32 // set only when frameType == FramePushPromise
	buf       []byte
	hasPri    bool
	priority  uint32
	endStream bool
}

// NewConnection wraps conn as one side of an HTTP/2 connection. Call
// Handshake then Serve to start the pump.
func NewConnection(role Role, conn net.Conn, local Values, logger Logger) *Connection {
	reqKind, respKind := hpack.RequestTable, hpack.ResponseTable
	var encKind, decKind hpack.Kind
	if role == RoleClient {
		encKind, decKind = reqKind, respKind
	} else {
		encKind, decKind = respKind, reqKind
	}

	if local.InitialWindowSize == 0 {
		local.InitialWindowSize = DefaultInitialWindowSize
	}

	c := &Connection{
		role:            role,
		conn:            conn,
		br:              bufio.NewReader(conn),
		bw:              bufio.NewWriter(conn),
		log:             logOf(logger),
		localValues:     local,
		peerValues:      DefaultValues(),
		connFlow:        newFlowController(DefaultInitialWindowSize),
		connRecvWindow:  int64(local.InitialWindowSize),
		connRecvInitial: int64(local.InitialWindowSize),
		encoder:         hpack.NewCoder(encKind),
		decoder:         hpack.NewCoder(decKind),
		pendingSeries:   make(map[uint32]*headerSeries),
		pings:           make(map[[8]byte]chan error),
		out:             make(chan *FrameHeader, 16),
		control:         make(chan func()),
		done:            make(chan struct{}),
	}
	if role == RoleClient {
		c.nextLocal, c.nextPush = 1, 2
	} else {
		c.nextLocal, c.nextPush = 2, 1
	}
	return c
}

// Handshake performs the preface/SETTINGS exchange of §4.4 and §6.1.
func (c *Connection) Handshake() error {
	if c.role == RoleClient {
		if _, err := io.WriteString(c.bw, ClientPreface); err != nil {
			return err
		}
	} else {
		var preface [24]byte
		if _, err := io.ReadFull(c.br, preface[:]); err != nil {
			return err
		}
		if string(preface[:]) != ClientPreface {
			return ErrBadPreface
		}
	}

	if err := c.writeSettings(); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (c *Connection) writeSettings() error {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	st := AcquireFrame(FrameSettings).(*Settings)
	if c.localValues.HasMaxConcurrentStreams {
		st.Add(SettingsMaxConcurrentStreams, c.localValues.MaxConcurrentStreams)
	}
	st.Add(SettingsInitialWindowSize, c.localValues.InitialWindowSize)
	if c.localValues.HasFlowControlOptions {
		st.Add(SettingsFlowControlOptions, c.localValues.FlowControlOptions)
	}
	fr.SetBody(st)
	fr.SetStream(0)

	_, err := fr.WriteTo(c.bw)
	return err
}

// SetEvents installs the connection-scope callbacks. Call before
// Serve; Serve itself never mutates c.events, so this is not safe to
// call concurrently with a running pump.
func (c *Connection) SetEvents(ev Events) { c.events = ev }

// CreateStream allocates the next outbound stream ID (§3: odd for
// client, even for server) and registers it. Returns nil once we have
// sent or received a GOAWAY (§4.4: neither side creates new streams
// once either has announced it is closing).
func (c *Connection) CreateStream() *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closingLocal || c.closingPeer {
		return nil
	}
	s := newStream(c.nextLocal, int32(c.peerValues.InitialWindowSize))
	c.applyFlowControlOptionsLocked(s)
	c.nextLocal += 2
	c.streams.insert(s)
	return s
}

// streamOr looks up id, creating it when createIfMissing and id names a
// stream we haven't seen yet. It refuses to create once we've sent our
// own GOAWAY, and once the peer's GOAWAY has arrived it refuses any id
// beyond the peer's announced last_stream — streams at or below that
// bound keep being serviced (§4.4). A nil return from a createIfMissing
// call means the frame that prompted it must be refused, not panicked
// on.
func (c *Connection) streamOr(id uint32, createIfMissing bool) *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.streams.get(id); s != nil {
		return s
	}
	if !createIfMissing {
		return nil
	}
	if c.closingLocal {
		return nil
	}
	if c.closingPeer && id > c.lastPeerGOAway {
		return nil
	}
	// The stream's outbound window is gated by what the peer told us it
	// can absorb, same as CreateStream's locally-initiated path, not by
	// our own advertised (inbound) window.
	s := newStream(id, int32(c.peerValues.InitialWindowSize))
	c.applyFlowControlOptionsLocked(s)
	c.streams.insert(s)
	return s
}

// applyFlowControlOptionsLocked honors the peer's most recent
// SETTINGS_FLOW_CONTROL_OPTIONS (§4.4, §9): once the peer has told us it
// disables flow control for new streams, every stream created from that
// point on starts with an infinite outbound window instead of
// peerValues.InitialWindowSize. Existing streams are untouched. Caller
// must hold c.mu.
func (c *Connection) applyFlowControlOptionsLocked(s *Stream) {
	if c.peerValues.FlowControlDisabledForNewStreams() {
		s.flow.ApplyUpdate(0, true)
	}
}

// Ping sends a PING with the given 8-byte payload (replaced by a random
// nonce when random is true, via fastrand as the teacher does for its
// frame RNG) and
// returns a future resolved when the matching PONG arrives.
func (c *Connection) Ping(data [8]byte, random bool) <-chan error {
	if random {
		v := c.rng.Uint32()
		w := c.rng.Uint32()
		data[0], data[1], data[2], data[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
		data[4], data[5], data[6], data[7] = byte(w), byte(w>>8), byte(w>>16), byte(w>>24)
	}

	ch := make(chan error, 1)
	c.mu.Lock()
	c.pings[data] = ch
	c.mu.Unlock()

	fr := AcquireFrameHeader()
	p := AcquireFrame(FramePing).(*Ping)
	p.SetData(data[:])
	fr.SetBody(p)
	c.enqueueControl(fr)

	return ch
}

// GoAway sends GOAWAY(lastStream, code) and stops accepting new locally
// created streams.
func (c *Connection) GoAway(lastStream uint32, code ErrorCode) {
	c.mu.Lock()
	c.closingLocal = true
	c.mu.Unlock()

	fr := AcquireFrameHeader()
	ga := AcquireFrame(FrameGoAway).(*GoAway)
	ga.SetLastStream(lastStream)
	ga.SetCode(code)
	fr.SetBody(ga)
	c.enqueueControl(fr)
}

func (c *Connection) enqueueControl(fr *FrameHeader) {
	select {
	case c.out <- fr:
	case <-c.done:
	}
}

// Close tears the pipeline down immediately.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

const pingInterval = 30 * time.Second
