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

package webadmin

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nuclio/metricbridge/pkg/bridge"
	"github.com/nuclio/metricbridge/pkg/bridgeconfig"
	"github.com/nuclio/metricbridge/pkg/metricconfig"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// Scheduler is the part of the scheduler the API operates on
type Scheduler interface {
	Monitor(configurations []metricconfig.Configuration) error
	Configurations() []metricconfig.Configuration
	Jobs() []bridge.JobStatus
}

// Loader reads the configured metric configuration source
type Loader func() ([]metricconfig.Configuration, error)

// Server exposes the active configurations and jobs, and allows replacing the configurations at runtime
type Server struct {
	logger         logger.Logger
	configuration  *bridgeconfig.WebServer
	scheduler      Scheduler
	loader         Loader
	metricsHandler http.Handler
	router         chi.Router
	lock           sync.Mutex
	server         *http.Server
	listener       net.Listener
}

func NewServer(parentLogger logger.Logger,
	configuration *bridgeconfig.WebServer,
	scheduler Scheduler,
	loader Loader,
	metricsHandler http.Handler) (*Server, error) {

	if scheduler == nil {
		return nil, errors.New("Web admin server requires a scheduler")
	}

	newServer := &Server{
		logger:         parentLogger.GetChild("webadmin"),
		configuration:  configuration,
		scheduler:      scheduler,
		loader:         loader,
		metricsHandler: metricsHandler,
	}

	newServer.router = newServer.createRouter()

	return newServer, nil
}

// Handler returns the API router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	if !s.configuration.IsEnabled() {
		s.logger.Debug("Web admin disabled, not listening")
		return nil
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.server != nil {
		return errors.New("Web admin server already started")
	}

	listener, err := net.Listen("tcp", s.configuration.ListenAddress)
	if err != nil {
		return errors.Wrapf(err, "Failed to listen on %s", s.configuration.ListenAddress)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.WarnWith("Web admin server stopped serving", "err", err.Error())
		}
	}()

	s.logger.InfoWith("Listening", "listenAddress", listener.Addr().String())

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.lock.Lock()
	server := s.server
	s.lock.Unlock()

	if server == nil {
		return nil
	}

	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "Failed to shut down web admin server")
	}

	return nil
}

// Address returns the address the server listens on, once started
func (s *Server) Address() string {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *Server) createRouter() chi.Router {
	router := chi.NewRouter()

	router.Use(s.requestResponseLogger())
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}).Handler)

	router.Route("/configurations", func(router chi.Router) {
		router.Get("/", s.getConfigurations)
		router.Put("/", s.putConfigurations)
		router.Delete("/", s.deleteConfigurations)
		router.Post("/reload", s.reloadConfigurations)
	})

	router.Get("/jobs", s.getJobs)

	if s.metricsHandler != nil {
		router.Handle("/metrics", s.metricsHandler)
	}

	return router
}

func (s *Server) requestResponseLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, request *http.Request) {
			responseBodyBuffer := bytes.Buffer{}

			responseWrapper := middleware.NewWrapResponseWriter(w, request.ProtoMajor)
			responseWrapper.Tee(&responseBodyBuffer)

			requestStartTime := time.Now()

			requestBody, _ := io.ReadAll(request.Body)
			request.Body = io.NopCloser(bytes.NewBuffer(requestBody))

			defer func() {
				s.logger.DebugWith("Handled request",
					"requestMethod", request.Method,
					"requestPath", request.URL,
					"requestBody", string(requestBody),
					"responseStatus", responseWrapper.Status(),
					"responseBody", responseBodyBuffer.String(),
					"responseTime", time.Since(requestStartTime))
			}()

			next.ServeHTTP(responseWrapper, request)
		}

		return http.HandlerFunc(fn)
	}
}
