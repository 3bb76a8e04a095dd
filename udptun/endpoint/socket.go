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
	"github.com/udptun-project/udptun-core/udptun/common"
	"github.com/udptun-project/udptun-core/udptun/common/errors"
	"golang.org/x/sys/unix"
)

// SocketFactory opens and binds the sockets a tunnel process uses as
// transport endpoints. Every open operation either returns a fully
// configured, bound descriptor, or closes any partially configured
// descriptor and returns a fatal-class error; callers never observe a
// half-configured socket.
//
// Logger and Registry may be nil; a nil Registry makes registration
// requests no-ops.
type SocketFactory struct {
	Logger   common.Logger
	Registry *Registry
}

// OpenUDPSocket4 creates a UDP socket bound to the IPv4 localAddr and
// port. The socket error queue is enabled, where the platform supports
// one, so ICMP-class failures are queued for DrainError instead of being
// discarded. When register is set, the descriptor is added to the
// factory's Registry for release at process termination.
func (factory *SocketFactory) OpenUDPSocket4(
	port int, localAddr string, register bool) (int, error) {

	sa, err := ResolveIPv4Address(localAddr, port)
	if err != nil {
		return -1, errors.Trace(err)
	}
	fd, err := factory.openUDPSocket(unix.AF_INET, sa)
	if err != nil {
		return -1, errors.Trace(err)
	}
	factory.register(fd, register)
	return fd, nil
}

// OpenUDPSocket6 is the IPv6 variant of OpenUDPSocket4.
func (factory *SocketFactory) OpenUDPSocket6(
	port int, localAddr string, register bool) (int, error) {

	sa, err := ResolveIPv6Address(localAddr, port)
	if err != nil {
		return -1, errors.Trace(err)
	}
	fd, err := factory.openUDPSocket(unix.AF_INET6, sa)
	if err != nil {
		return -1, errors.Trace(err)
	}
	factory.register(fd, register)
	return fd, nil
}

func (factory *SocketFactory) openUDPSocket(
	family int, sa unix.Sockaddr) (int, error) {

	fd, err := unix.Socket(family, unix.SOCK_DGRAM, 0)
	if err != nil {
		return -1, fatal(errors.TraceMsg(err, "creating UDP socket failed"))
	}
	unix.CloseOnExec(fd)

	err = enableReceiveErrors(fd, family)
	if err != nil {
		unix.Close(fd)
		return -1, errors.Trace(err)
	}

	err = unix.Bind(fd, sa)
	if err != nil {
		unix.Close(fd)
		return -1, fatal(errors.TraceMsg(err, "binding UDP socket failed"))
	}

	return fd, nil
}

func (factory *SocketFactory) register(fd int, register bool) {
	if register && factory.Registry != nil {
		factory.Registry.Register(fd)
	}
}
