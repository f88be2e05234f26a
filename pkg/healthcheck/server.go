/*
Copyright 2023 The Nuclio Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package healthcheck

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nuclio/metricbridge/pkg/bridgeconfig"

	"github.com/heptiolabs/healthcheck"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// StatusProvider reports the state of the scheduler
type StatusProvider interface {

	// IsMonitoring returns true once a configuration was applied
	IsMonitoring() bool

	// IsShutdown returns true once the scheduler was shut down
	IsShutdown() bool
}

type Server struct {
	Logger         logger.Logger
	Enabled        bool
	ListenAddress  string
	StatusProvider StatusProvider
	Handler        healthcheck.Handler
	lock           sync.Mutex
	server         *http.Server
	listener       net.Listener
}

func NewServer(parentLogger logger.Logger,
	statusProvider StatusProvider,
	configuration *bridgeconfig.WebServer) (*Server, error) {
	if statusProvider == nil {
		return nil, errors.New("Health check server requires a status provider")
	}

	server := &Server{
		Enabled:        configuration.IsEnabled(),
		ListenAddress:  configuration.ListenAddress,
		Logger:         parentLogger.GetChild("healthcheck.server"),
		StatusProvider: statusProvider,
		Handler:        healthcheck.NewHandler(),
	}

	server.Handler.AddLivenessCheck("scheduler", func() error {
		if server.StatusProvider.IsShutdown() {
			return errors.New("Scheduler is shut down")
		}

		return nil
	})

	server.Handler.AddReadinessCheck("monitoring", func() error {
		if !server.StatusProvider.IsMonitoring() {
			return errors.New("No metric configuration applied yet")
		}

		return nil
	})

	return server, nil
}

func (s *Server) Start() error {
	if !s.Enabled {
		s.Logger.Debug("Health check disabled, not listening")
		return nil
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	listener, err := net.Listen("tcp", s.ListenAddress)
	if err != nil {
		return errors.Wrapf(err, "Failed to listen on %s", s.ListenAddress)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.server.Serve(listener) // nolint: errcheck

	s.Logger.InfoWith("Listening", "listenAddress", listener.Addr().String())

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.lock.Lock()
	server := s.server
	s.lock.Unlock()

	if server == nil {
		return nil
	}

	return server.Shutdown(ctx)
}
