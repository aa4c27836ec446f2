// Package tcplistener accepts granule notifications as newline-delimited
// JSON over a TCP socket.
package tcplistener

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satfire/firewatch/internal/types"
	"github.com/satfire/firewatch/pkg/config"
)

// Source listens on one TCP address. Each connection may carry any number
// of notifications, one JSON document per line; malformed lines are logged
// and skipped without dropping the connection.
type Source struct {
	ctx      context.Context
	cancel   context.CancelFunc
	wg       *sync.WaitGroup
	cfg      config.SourceData
	granules chan<- types.GranuleNotification
	logger   *zap.SugaredLogger
	listener net.Listener
}

func NewSource(ctx context.Context, wg *sync.WaitGroup, cfg config.SourceData, granules chan<- types.GranuleNotification, logger *zap.SugaredLogger) *Source {
	ctx, cancel := context.WithCancel(ctx)
	return &Source{
		ctx:      ctx,
		cancel:   cancel,
		wg:       wg,
		cfg:      cfg,
		granules: granules,
		logger:   logger,
	}
}

func (s *Source) SourceName() string {
	return s.cfg.Name
}

// Addr returns the bound listen address, nil before StartSource.
func (s *Source) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// StartSource binds the listen socket and launches the accept loop
func (s *Source) StartSource() error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("tcplistener source [%s] cannot listen on %v: %v", s.cfg.Name, s.cfg.Address, err)
	}
	s.listener = ln
	s.logger.Infof("tcplistener source [%s] accepting notifications on %v", s.cfg.Name, ln.Addr())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-s.ctx.Done()
		ln.Close()
	}()

	s.wg.Add(1)
	go s.accept(ln)
	return nil
}

func (s *Source) StopSource() error {
	s.cancel()
	return nil
}

func (s *Source) accept(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				s.logger.Infof("tcplistener source [%s] stopped", s.cfg.Name)
				return
			}
			s.logger.Warnf("tcplistener source [%s] accept failed: %v", s.cfg.Name, err)
			time.Sleep(time.Second)
			continue
		}
		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Source) serve(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	stop := context.AfterFunc(s.ctx, func() { conn.Close() })
	defer stop()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var g types.GranuleNotification
		if err := json.Unmarshal(line, &g); err != nil {
			s.logger.Warnf("tcplistener source [%s] discarding malformed notification from %v: %v",
				s.cfg.Name, conn.RemoteAddr(), err)
			continue
		}
		select {
		case s.granules <- g:
		case <-s.ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil && s.ctx.Err() == nil {
		s.logger.Warnf("tcplistener source [%s] connection from %v failed: %v",
			s.cfg.Name, conn.RemoteAddr(), err)
	}
}
