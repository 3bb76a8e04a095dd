/*
 * Copyright (c) 2016, The udptun Authors.
 * All rights reserved.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package endpoint

import (
	"sync"

	"golang.org/x/sys/unix"
)

// Registry tracks file descriptors created through SocketFactory which
// must be released before the process exits. The cleanup policy is
// deliberately coarse: entries are added at socket creation time and are
// only cleared when CloseAll runs at the process termination point, which
// is adequate because the owning process has a single tunnel lifetime per
// execution.
//
// A Registry is an explicit, injectable object rather than hidden global
// state; the tunnel process creates one at startup and passes it to its
// SocketFactory and to Exit.
type Registry struct {
	mutex  sync.Mutex
	fds    []int
	closed bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds fd to the set of descriptors closed by CloseAll. There is
// no removal operation.
func (registry *Registry) Register(fd int) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	if registry.closed {
		// Termination is already underway; close immediately so the
		// descriptor is not leaked.
		_ = unix.Close(fd)
		return
	}
	registry.fds = append(registry.fds, fd)
}

// CloseAll closes every registered descriptor. CloseAll is idempotent;
// each descriptor is closed at most once regardless of how many
// termination paths reach it.
func (registry *Registry) CloseAll() {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	if registry.closed {
		return
	}
	registry.closed = true
	for _, fd := range registry.fds {
		_ = unix.Close(fd)
	}
	registry.fds = nil
}
