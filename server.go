package main

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Server ties together the store, lock manager, sweeper and metrics into a
// running cache instance.
type Server struct {
	config  *Config
	logger  zerolog.Logger
	store   *Store
	locks   *LockManager
	metrics *Metrics
	sweeper *Sweeper

	listener net.Listener
}

// NewServer builds a Server from the resolved configuration.
func NewServer(cfg *Config, logger zerolog.Logger) *Server {
	store := NewStore(cfg.Shards)
	locks := NewLockManager(cfg.Shards)
	metrics := NewMetrics()

	return &Server{
		config:  cfg,
		logger:  logger,
		store:   store,
		locks:   locks,
		metrics: metrics,
		sweeper: NewSweeper(store, locks, metrics, cfg, logger),
	}
}

// Run binds the listener and blocks, serving connections and running the
// sweeper and metrics server, until ctx is cancelled or a fatal error
// occurs in any of the three.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.logger.Info().Str("addr", addr).Msg("cache server listening")

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return s.acceptLoop(gctx)
	})
	group.Go(func() error {
		return s.sweeper.Run(gctx)
	})
	group.Go(func() error {
		return s.metrics.Serve(gctx, s.config.MetricsAddr, s.logger)
	})
	group.Go(func() error {
		<-gctx.Done()
		return s.listener.Close()
	})

	err = group.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		s.metrics.ConnOpened()
		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer s.metrics.ConnClosed()

	remote := conn.RemoteAddr().String()
	framer := NewFramer(bufio.NewReader(conn))
	writer := bufio.NewWriter(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cmd, err := framer.ReadCommand()
		if err != nil {
			if errors.Is(err, ErrConnClosedByClient) {
				s.logger.Debug().Str("remote", remote).Msg("connection closed")
				return
			}
			s.logger.Debug().Str("remote", remote).Err(err).Msg("protocol error")
			if writeErr := writeReply(writer, err.Error()); writeErr != nil {
				return
			}
			continue
		}

		reply, err := Execute(cmd, s.store, s.locks, s.metrics)
		if err != nil {
			reply = err.Error()
		}
		if err := writeReply(writer, reply); err != nil {
			s.logger.Debug().Str("remote", remote).Err(err).Msg("write failed")
			return
		}
	}
}

func writeReply(w *bufio.Writer, reply string) error {
	if _, err := w.WriteString(reply); err != nil {
		return err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return w.Flush()
}
