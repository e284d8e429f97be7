package kickoff

import (
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/imagvfx/kickoff/blob"
)

const (
	// DefaultCleanupInterval is how often the server sweeps for
	// zombie tasks.
	DefaultCleanupInterval = 10 * time.Second

	// DefaultHeartbeatTimeout is how stale a dispatched task's
	// heartbeat may get before the reaper declares its worker dead.
	// It must stay well above the worker heartbeat interval; three
	// missed heartbeats is the floor.
	DefaultHeartbeatTimeout = 60 * time.Second
)

// serverStats counts request outcomes over the server's lifetime.
type serverStats struct {
	succeeded atomic.Uint64
	failed    atomic.Uint64
	bad       atomic.Uint64
}

func (s *serverStats) total() uint64 {
	return s.succeeded.Load() + s.failed.Load() + s.bad.Load()
}

// Server owns the task database and a listening TCP socket. Requests
// are served one at a time per connection; the database lock
// serializes mutations across connections.
type Server struct {
	// CleanupInterval and HeartbeatTimeout tune the zombie reaper.
	// Both must be set before Listen; NewServer picks the defaults.
	CleanupInterval  time.Duration
	HeartbeatTimeout time.Duration

	// Metrics, when non-nil, exposes the database counters and
	// request outcomes to prometheus.
	Metrics *Metrics

	db    *Database
	stats serverStats

	mu       sync.Mutex
	ln       net.Listener
	closed   bool
	done     chan struct{}
	lastReqs uint64
}

// NewServer creates a Server with default tuning around an empty
// database.
func NewServer() *Server {
	return &Server{
		CleanupInterval:  DefaultCleanupInterval,
		HeartbeatTimeout: DefaultHeartbeatTimeout,
		db:               NewDatabase(),
		done:             make(chan struct{}),
	}
}

// DB returns the server's task database.
func (s *Server) DB() *Database {
	return s.db
}

// Listen binds the server's TCP socket.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server on %v: %w", addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address. It is only valid after Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until Shutdown. It also drives the zombie
// reaper. Listen must have been called first.
func (s *Server) Serve() error {
	go s.reapLoop()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return err
		}
		go s.serveConn(conn)
	}
}

// Shutdown stops accepting connections and stops the reaper.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	if s.ln != nil {
		s.ln.Close()
	}
}

// reapLoop periodically reclaims tasks whose workers stopped
// heartbeating, and logs request traffic since the last sweep.
func (s *Server) reapLoop() {
	tick := time.NewTicker(s.CleanupInterval)
	defer tick.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-tick.C:
			reaped := s.db.CleanupZombieTasks(int64(s.HeartbeatTimeout / time.Second))
			if reaped > 0 {
				log.Printf("reaped %d zombie task(s)", reaped)
			}
			s.mu.Lock()
			last := s.lastReqs
			s.lastReqs = s.stats.total()
			total := s.lastReqs
			s.mu.Unlock()
			if total != last {
				log.Printf("%d requests served (%d ok, %d failed, %d bad/corrupt)",
					total, s.stats.succeeded.Load(), s.stats.failed.Load(), s.stats.bad.Load())
			}
		}
	}
}

// serveConn answers requests on one connection, in request order,
// until the peer goes away. A framing error poisons the stream, so the
// connection is dropped rather than resynced.
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	for {
		payload, err := readFrame(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("dropping connection from %v: %v", conn.RemoteAddr(), err)
			}
			return
		}
		reply := s.handleRequest(payload)
		if err := writeFrame(conn, reply); err != nil {
			log.Printf("dropping connection from %v: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

// handleRequest decodes one request, applies it to the database, and
// encodes the reply. A request that fails to decode changes nothing
// and is answered with replyBadRequest.
func (s *Server) handleRequest(payload []byte) []byte {
	r := blob.NewReader(payload)
	w := &blob.Writer{}

	op, err := r.Uint8()
	if err != nil {
		return s.badRequest(w)
	}

	switch requestType(op) {
	case reqGetCommand:
		id, err := r.Uint64()
		if err != nil {
			return s.badRequest(w)
		}
		info, ok := s.db.GetTask(TaskID(id))
		if !ok {
			return s.fail(w)
		}
		s.ok(w)
		w.String(info.Command)

	case reqGetSchedule:
		id, err := r.Uint64()
		if err != nil {
			return s.badRequest(w)
		}
		info, ok := s.db.GetTask(TaskID(id))
		if !ok {
			return s.fail(w)
		}
		s.ok(w)
		info.Schedule.Encode(w)

	case reqGetStatus:
		id, err := r.Uint64()
		if err != nil {
			return s.badRequest(w)
		}
		info, ok := s.db.GetTask(TaskID(id))
		if !ok {
			return s.fail(w)
		}
		s.ok(w)
		info.Status.Encode(w)

	case reqGetStats:
		if r.Remaining() != 0 {
			return s.badRequest(w)
		}
		s.ok(w)
		s.db.Stats().Encode(w)

	case reqGetTasksByStates:
		n, err := r.Count()
		if err != nil {
			return s.badRequest(w)
		}
		states := make([]TaskState, 0, n)
		for i := 0; i < n; i++ {
			b, err := r.Uint8()
			if err != nil {
				return s.badRequest(w)
			}
			states = append(states, TaskState(b))
		}
		infos, err := s.db.GetTasksByStates(states...)
		if err != nil {
			return s.fail(w)
		}
		s.ok(w)
		w.Count(len(infos))
		for _, info := range infos {
			info.Encode(w)
		}

	case reqCreate:
		var info TaskCreateInfo
		if err := info.Decode(r); err != nil {
			return s.badRequest(w)
		}
		t := s.db.CreateTask(info)
		s.ok(w)
		w.Uint64(uint64(t.ID))

	case reqTakeToRun:
		have, err := r.StringSlice()
		if err != nil {
			return s.badRequest(w)
		}
		info, ok := s.db.TakeTaskToRun(have)
		if !ok {
			return s.fail(w)
		}
		s.ok(w)
		info.Encode(w)

	case reqHeartbeat:
		id, err := r.Uint64()
		if err != nil {
			return s.badRequest(w)
		}
		wasCanceled, ok := s.db.HeartbeatTask(TaskID(id))
		if !ok {
			return s.fail(w)
		}
		s.ok(w)
		w.Bool(wasCanceled)

	case reqMarkFinished:
		id, err := r.Uint64()
		if err != nil {
			return s.badRequest(w)
		}
		if !s.db.MarkTaskFinished(TaskID(id)) {
			return s.fail(w)
		}
		s.ok(w)

	case reqMarkShouldCancel:
		id, err := r.Uint64()
		if err != nil {
			return s.badRequest(w)
		}
		if !s.db.MarkTaskShouldCancel(TaskID(id)) {
			return s.fail(w)
		}
		s.ok(w)

	default:
		return s.badRequest(w)
	}

	return w.Bytes()
}

// ok starts a success reply. The caller appends the body.
func (s *Server) ok(w *blob.Writer) {
	s.stats.succeeded.Add(1)
	if s.Metrics != nil {
		s.Metrics.RequestsTotal.WithLabelValues("ok").Inc()
	}
	w.Uint8(uint8(replyOK))
}

func (s *Server) fail(w *blob.Writer) []byte {
	s.stats.failed.Add(1)
	if s.Metrics != nil {
		s.Metrics.RequestsTotal.WithLabelValues("failed").Inc()
	}
	w.Uint8(uint8(replyFailed))
	return w.Bytes()
}

func (s *Server) badRequest(w *blob.Writer) []byte {
	s.stats.bad.Add(1)
	if s.Metrics != nil {
		s.Metrics.RequestsTotal.WithLabelValues("bad").Inc()
	}
	w.Uint8(uint8(replyBadRequest))
	return w.Bytes()
}
