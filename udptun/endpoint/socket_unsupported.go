//go:build !linux
// +build !linux

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
	"github.com/udptun-project/udptun-core/udptun/common/errors"
	"golang.org/x/net/bpf"
)

func errRawUnsupported() error {
	return fatal(errors.TraceNew("raw sockets not supported on this platform"))
}

// RawSocketsSupported indicates whether this platform exposes raw protocol
// sockets with kernel packet filtering.
func RawSocketsSupported() bool {
	return false
}

func (factory *SocketFactory) OpenRawSocket4(
	_ int, _ string, _ []bpf.RawInstruction, _ string, _ int, _ bool, _ bool) (int, error) {
	return -1, errRawUnsupported()
}

func (factory *SocketFactory) OpenRawSocket6(
	_ int, _ string, _ []bpf.RawInstruction, _ string, _ int, _ bool, _ bool) (int, error) {
	return -1, errRawUnsupported()
}

func (factory *SocketFactory) OpenRawTCPSocket4(
	_ int, _ string, _ []bpf.RawInstruction, _ string, _ bool, _ bool) (int, error) {
	return -1, errRawUnsupported()
}

func enableReceiveErrors(_ int, _ int) error {
	// No socket error queue facility; receive errors surface, if at all,
	// through ordinary receive calls.
	return nil
}
