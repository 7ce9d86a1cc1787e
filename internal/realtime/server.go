package realtime

import (
	"bufio"
	"errors"
	"net"

	"github.com/rs/zerolog"
)

// Server is the TCP firehose: every change event the hub publishes goes
// to every connected TCP client, newline-delimited JSON.
type Server struct {
	Addr string
	Hub  *Hub

	ln  net.Listener
	log zerolog.Logger
}

func NewServer(addr string, hub *Hub, logger zerolog.Logger) *Server {
	return &Server{Addr: addr, Hub: hub, log: logger}
}

func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.log.Info().Str("addr", s.Addr).Msg("tcp firehose listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}

		s.Hub.AddTCP(conn)
		s.log.Debug().Stringer("remote", conn.RemoteAddr()).Msg("tcp client connected")

		go func(c net.Conn) {
			defer func() {
				s.Hub.RemoveTCP(c)
				s.log.Debug().Stringer("remote", c.RemoteAddr()).Msg("tcp client disconnected")
			}()

			// Consume and discard anything the client sends.
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}

func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
