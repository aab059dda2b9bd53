package ctl

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"miclock/log"
)

const ioTimeout = 5 * time.Second

// Handler answers one request. It runs on the connection's goroutine.
type Handler interface {
	Handle(req Request) Response
}

type HandlerFunc func(Request) Response

func (f HandlerFunc) Handle(req Request) Response { return f(req) }

type Server struct {
	path    string
	handler Handler
	ln      net.Listener
	wg      sync.WaitGroup
}

// Listen binds path, replacing a stale socket left by a previous run. It
// refuses to start if another process is still answering on path.
func Listen(path string, h Handler) (*Server, error) {
	if conn, err := net.DialTimeout("unix", path, 200*time.Millisecond); err == nil {
		conn.Close()
		return nil, fmt.Errorf("ctl: %s is in use by another miclock", path)
	}
	os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	os.Chmod(path, 0700)
	return &Server{path: path, handler: h, ln: ln}, nil
}

func (s *Server) Path() string { return s.path }

// Serve accepts connections until Close is called.
func (s *Server) Serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Warnf("ctl accept: %v", err)
			}
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(ioTimeout))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		json.NewEncoder(conn).Encode(Response{Error: "invalid request: " + err.Error()})
		return
	}
	log.Infof("ctl_request: %s", req.Command)
	json.NewEncoder(conn).Encode(s.handler.Handle(req))
}

// Close stops accepting, waits for in-flight requests and removes the socket.
func (s *Server) Close() error {
	err := s.ln.Close()
	s.wg.Wait()
	os.Remove(s.path)
	return err
}
