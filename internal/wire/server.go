package wire

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"lupine/internal/domain"
	"lupine/internal/workerpool"
)

const (
	maxRecvSize        = 4 * 1024
	defaultConnTimeout = 5 * time.Second
	defaultPoolSize    = 10
)

// Submitter is the one method wire.Server needs from the engine side: submit
// a command and block for its CommandResult. engineloop.Engine doesn't
// implement this directly — cmd/engine/main.go wires a small adapter that
// sends on the command channel and waits on the reply channel, the same
// split the teacher keeps between internal/net.Engine (interface) and
// internal/engine.Engine (implementation).
type Submitter interface {
	Submit(ctx context.Context, cmd domain.EngineCommand) domain.CommandResult
}

// Server is a TCP front end translating wire frames into EngineCommands,
// generalized from the teacher's internal/net.Server (worker-pool-per-
// connection, tomb-supervised) to the decimal wire format of this package.
type Server struct {
	addr      string
	submitter Submitter
	pool      *workerpool.Pool

	mu    sync.Mutex
	conns map[string]net.Conn

	log zerolog.Logger
}

func NewServer(addr string, submitter Submitter) *Server {
	return &Server{
		addr:      addr,
		submitter: submitter,
		pool:      workerpool.New(defaultPoolSize),
		conns:     make(map[string]net.Conn),
		log:       log.With().Str("component", "wire_server").Logger(),
	}
}

// Run listens until ctx is cancelled, dispatching accepted connections onto
// a workerpool.Pool exactly the way the teacher's internal/net/server.go
// accept loop feeds its WorkerPool: one task per pending read, each worker
// re-enqueueing the connection after it forwards one frame so reads across
// all open connections share a bounded set of goroutines.
func (s *Server) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	defer listener.Close()

	t.Go(func() error {
		<-t.Dying()
		return listener.Close()
	})
	t.Go(func() error {
		s.pool.Setup(t, s.handleConn)
		return nil
	})

	s.log.Info().Str("addr", s.addr).Msg("wire server listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return t.Wait()
			default:
				s.log.Error().Err(err).Msg("accept error")
				continue
			}
		}
		s.addConn(conn)
		s.pool.AddTask(conn)
	}
}

func (s *Server) addConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn.RemoteAddr().String()] = conn
}

func (s *Server) removeConn(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, addr)
}

// handleConn is a workerpool.WorkerFunction: it reads exactly one frame off
// conn, dispatches it, and — unless the connection died — re-enqueues conn
// so the next available pool worker picks up its next frame. This mirrors
// the teacher's handleConnection, which reads one message then calls
// s.pool.AddTask(conn) to hand the connection back to the pool rather than
// monopolizing a goroutine on it for its whole lifetime.
func (s *Server) handleConn(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return fmt.Errorf("workerpool: unexpected task type %T", task)
	}
	addr := conn.RemoteAddr().String()

	select {
	case <-t.Dying():
		return nil
	default:
	}

	conn.SetReadDeadline(time.Now().Add(defaultConnTimeout))
	buf := make([]byte, maxRecvSize)
	n, err := conn.Read(buf)
	if err != nil {
		s.log.Debug().Err(err).Str("addr", addr).Msg("connection closed")
		conn.Close()
		s.removeConn(addr)
		return nil
	}

	decoded, err := Decode(buf[:n])
	if err != nil {
		s.log.Warn().Err(err).Str("addr", addr).Msg("malformed frame")
	} else {
		s.dispatch(conn, decoded)
	}

	s.pool.AddTask(conn)
	return nil
}

func (s *Server) dispatch(conn net.Conn, decoded Decoded) {
	switch decoded.Type {
	case Heartbeat:
		return
	case NewOrder:
		args := decoded.NewOrder.Args()
		cmd := domain.NewCreateLimitCommand(args, nil)
		if args.OrderType == domain.Market {
			cmd = domain.NewCreateMarketCommand(args, nil)
		}
		s.submitAndReply(conn, cmd)
	case CancelOrder:
		cmd := domain.NewCancelCommand(decoded.CancelOrder.OrderID, nil)
		s.submitAndReply(conn, cmd)
	}
}

func (s *Server) submitAndReply(conn net.Conn, cmd domain.EngineCommand) {
	result := s.submitter.Submit(context.Background(), cmd)
	var report Report
	if result.Err != nil {
		report = ErrReport(result.OrderID, result.Err)
	} else {
		report = OKReport(result.OrderID)
	}
	if _, err := conn.Write(report.Serialize()); err != nil {
		s.log.Error().Err(err).Msg("failed to write report")
	}
}
