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

// Package platform holds the process-wide management server
package platform

import (
	"sync"

	"github.com/nuclio/metricbridge/pkg/management"
	"github.com/nuclio/metricbridge/pkg/management/goruntime"
	"github.com/nuclio/metricbridge/pkg/management/host"
)

var (
	server     *management.LocalServer
	serverErr  error
	serverOnce sync.Once
)

// Server returns the process-wide server, populated with the runtime and host containers and
// all expvar variables published when it is first requested
func Server() (*management.LocalServer, error) {
	serverOnce.Do(func() {
		localServer := management.NewLocalServer()

		if serverErr = goruntime.Register(localServer); serverErr != nil {
			return
		}

		if serverErr = host.Register(localServer); serverErr != nil {
			return
		}

		management.RegisterExpvars(localServer)

		server = localServer
	})

	return server, serverErr
}

// RefreshExpvars registers containers for variables published after the server was created
func RefreshExpvars() (int, error) {
	localServer, err := Server()
	if err != nil {
		return 0, err
	}

	return management.RegisterExpvars(localServer), nil
}
