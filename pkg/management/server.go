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

package management

import (
	"sort"
	"sync"

	"github.com/nuclio/metricbridge/pkg/attribute"

	"github.com/nuclio/errors"
)

var (
	ErrContainerNotFound     = errors.New("Container not found")
	ErrAttributeNotFound     = errors.New("Attribute not found")
	ErrContainerAlreadyExist = errors.New("Container already registered")
)

// Server is a registry of containers, each exposing named attributes
type Server interface {

	// GetAttribute reads an attribute of the container with the given name
	GetAttribute(name ObjectName, attributeName string) (attribute.Value, error)
}

// Container groups related attributes under one name
type Container interface {

	// GetAttribute returns the current value of an attribute. Values may be numbers, records
	// (maps or attribute.CompositeData) or anything else
	GetAttribute(attributeName string) (interface{}, error)
}

// AttributeFunc adapts a function to a container
type AttributeFunc func(attributeName string) (interface{}, error)

func (af AttributeFunc) GetAttribute(attributeName string) (interface{}, error) {
	return af(attributeName)
}

// Attributes is a container of fixed values
type Attributes map[string]interface{}

func (a Attributes) GetAttribute(attributeName string) (interface{}, error) {
	value, found := a[attributeName]
	if !found {
		return nil, errors.Wrapf(ErrAttributeNotFound, "No attribute %s", attributeName)
	}

	return value, nil
}

// Getters is a container whose attributes are computed on every read
type Getters map[string]func() (interface{}, error)

func (g Getters) GetAttribute(attributeName string) (interface{}, error) {
	getter, found := g[attributeName]
	if !found {
		return nil, errors.Wrapf(ErrAttributeNotFound, "No attribute %s", attributeName)
	}

	return getter()
}

type registeredContainer struct {
	name      ObjectName
	container Container
}

// LocalServer is an in-process, concurrency safe server
type LocalServer struct {
	lock       sync.RWMutex
	containers map[string]registeredContainer
}

func NewLocalServer() *LocalServer {
	return &LocalServer{
		containers: map[string]registeredContainer{},
	}
}

// Register adds a container under a name. Registering a taken name fails
func (ls *LocalServer) Register(name ObjectName, container Container) error {
	ls.lock.Lock()
	defer ls.lock.Unlock()

	if _, found := ls.containers[name.Canonical()]; found {
		return errors.Wrapf(ErrContainerAlreadyExist, "Container %s is already registered", name.String())
	}

	ls.containers[name.Canonical()] = registeredContainer{
		name:      name,
		container: container,
	}

	return nil
}

// Unregister removes a container
func (ls *LocalServer) Unregister(name ObjectName) error {
	ls.lock.Lock()
	defer ls.lock.Unlock()

	if _, found := ls.containers[name.Canonical()]; !found {
		return errors.Wrapf(ErrContainerNotFound, "Container %s is not registered", name.String())
	}

	delete(ls.containers, name.Canonical())

	return nil
}

func (ls *LocalServer) IsRegistered(name ObjectName) bool {
	ls.lock.RLock()
	defer ls.lock.RUnlock()

	_, found := ls.containers[name.Canonical()]

	return found
}

// Names returns the names of all registered containers, sorted
func (ls *LocalServer) Names() []ObjectName {
	ls.lock.RLock()
	defer ls.lock.RUnlock()

	names := make([]ObjectName, 0, len(ls.containers))
	for _, registered := range ls.containers {
		names = append(names, registered.name)
	}

	sort.Slice(names, func(i, j int) bool {
		return names[i].Canonical() < names[j].Canonical()
	})

	return names
}

func (ls *LocalServer) GetAttribute(name ObjectName, attributeName string) (attribute.Value, error) {
	ls.lock.RLock()
	registered, found := ls.containers[name.Canonical()]
	ls.lock.RUnlock()

	if !found {
		return attribute.Value{}, errors.Wrapf(ErrContainerNotFound, "Container %s is not registered", name.String())
	}

	// read outside the lock, containers may be slow
	rawValue, err := registered.container.GetAttribute(attributeName)
	if err != nil {
		return attribute.Value{}, errors.Wrapf(err, "Failed to read %s from %s", attributeName, name.String())
	}

	return attribute.Of(rawValue), nil
}
