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
	"encoding/json"
	"net/http"

	"github.com/nuclio/metricbridge/pkg/metricconfig"

	"github.com/nuclio/errors"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) getConfigurations(w http.ResponseWriter, request *http.Request) {
	s.writeJSON(w, http.StatusOK, s.scheduler.Configurations())
}

func (s *Server) putConfigurations(w http.ResponseWriter, request *http.Request) {
	configurations, err := metricconfig.NewParser().ParseReader(request.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.monitor(w, configurations)
}

func (s *Server) deleteConfigurations(w http.ResponseWriter, request *http.Request) {
	if err := s.scheduler.Monitor([]metricconfig.Configuration{}); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reloadConfigurations(w http.ResponseWriter, request *http.Request) {
	if s.loader == nil {
		s.writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "No configuration source to reload from"})
		return
	}

	configurations, err := s.loader()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.monitor(w, configurations)
}

func (s *Server) getJobs(w http.ResponseWriter, request *http.Request) {
	s.writeJSON(w, http.StatusOK, s.scheduler.Jobs())
}

func (s *Server) monitor(w http.ResponseWriter, configurations []metricconfig.Configuration) {
	if err := s.scheduler.Monitor(configurations); err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.InfoWith("Configurations replaced", "count", len(configurations))

	s.writeJSON(w, http.StatusOK, s.scheduler.Configurations())
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	if metricconfig.IsConfigurationError(err) {
		statusCode = http.StatusBadRequest
	}

	if statusCode == http.StatusInternalServerError {
		s.logger.WarnWith("Request failed", "err", errors.GetErrorStackString(err, 10))
	}

	s.writeJSON(w, statusCode, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	encodedBody, err := json.Marshal(body)
	if err != nil {
		s.logger.WarnWith("Failed to encode response", "err", err.Error())
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(encodedBody) // nolint: errcheck
}
