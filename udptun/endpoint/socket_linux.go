//go:build linux
// +build linux

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
	"unsafe"

	"github.com/udptun-project/udptun-core/udptun/common"
	"github.com/udptun-project/udptun-core/udptun/common/errors"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// RawSocketsSupported indicates whether this platform exposes raw protocol
// sockets with kernel packet filtering.
func RawSocketsSupported() bool {
	return true
}

// OpenRawSocket4 creates a raw IPv4 socket for the given protocol number,
// bound to localAddr and port.
//
// The setup order is significant. When device is non-empty, the socket is
// bound to that interface before anything else, so no traffic can arrive
// on the socket from another interface; the filter, when non-nil, is
// attached only after the interface binding, so it never observes traffic
// outside the interface's scope. Requires CAP_NET_RAW.
//
// When restricted is set, operations known to be unavailable in a
// constrained raw-socket environment are suppressed rather than failing
// the setup: PlanetLab's safe raw sockets forbid SO_BINDTODEVICE, so the
// interface binding is skipped with a warning.
//
// When register is set, the descriptor is added to the factory's Registry
// for release at process termination.
func (factory *SocketFactory) OpenRawSocket4(
	port int,
	localAddr string,
	filter []bpf.RawInstruction,
	device string,
	protocol int,
	register bool,
	restricted bool) (int, error) {

	sa, err := ResolveIPv4Address(localAddr, port)
	if err != nil {
		return -1, errors.Trace(err)
	}
	fd, err := factory.openRawSocket(
		unix.AF_INET, sa, filter, device, protocol, restricted)
	if err != nil {
		return -1, errors.Trace(err)
	}
	factory.register(fd, register)
	return fd, nil
}

// OpenRawSocket6 is the IPv6 variant of OpenRawSocket4.
func (factory *SocketFactory) OpenRawSocket6(
	port int,
	localAddr string,
	filter []bpf.RawInstruction,
	device string,
	protocol int,
	register bool,
	restricted bool) (int, error) {

	sa, err := ResolveIPv6Address(localAddr, port)
	if err != nil {
		return -1, errors.Trace(err)
	}
	fd, err := factory.openRawSocket(
		unix.AF_INET6, sa, filter, device, protocol, restricted)
	if err != nil {
		return -1, errors.Trace(err)
	}
	factory.register(fd, register)
	return fd, nil
}

// OpenRawTCPSocket4 is a convenience equivalent to calling OpenRawSocket4
// with the TCP protocol number.
func (factory *SocketFactory) OpenRawTCPSocket4(
	port int,
	localAddr string,
	filter []bpf.RawInstruction,
	device string,
	register bool,
	restricted bool) (int, error) {

	fd, err := factory.OpenRawSocket4(
		port, localAddr, filter, device, unix.IPPROTO_TCP, register, restricted)
	return fd, errors.Trace(err)
}

func (factory *SocketFactory) openRawSocket(
	family int,
	sa unix.Sockaddr,
	filter []bpf.RawInstruction,
	device string,
	protocol int,
	restricted bool) (int, error) {

	fd, err := unix.Socket(family, unix.SOCK_RAW, protocol)
	if err != nil {
		return -1, fatal(errors.TraceMsg(err, "creating raw socket failed"))
	}
	unix.CloseOnExec(fd)

	err = factory.configureRawSocket(fd, sa, filter, device, restricted)
	if err != nil {
		unix.Close(fd)
		return -1, errors.Trace(err)
	}

	return fd, nil
}

func (factory *SocketFactory) configureRawSocket(
	fd int,
	sa unix.Sockaddr,
	filter []bpf.RawInstruction,
	device string,
	restricted bool) error {

	if device != "" {
		if restricted {
			if factory.Logger != nil {
				factory.Logger.WithTraceFields(
					common.LogFields{"device": device}).Warning(
					"interface binding suppressed in restricted mode")
			}
		} else {
			err := unix.BindToDevice(fd, device)
			if err != nil {
				return fatal(errors.TraceMsg(err, "binding raw socket to device failed"))
			}
		}
	}

	err := unix.Bind(fd, sa)
	if err != nil {
		return fatal(errors.TraceMsg(err, "binding raw socket failed"))
	}

	// Attach strictly after the interface binding, so the filter only
	// ever observes interface-scoped traffic.
	if filter != nil {
		err = attachFilter(fd, filter)
		if err != nil {
			return errors.Trace(err)
		}
	}

	return nil
}

func attachFilter(fd int, filter []bpf.RawInstruction) error {
	if len(filter) == 0 {
		return fatal(errors.TraceNew("empty filter program"))
	}
	err := unix.SetsockoptSockFprog(
		fd,
		unix.SOL_SOCKET,
		unix.SO_ATTACH_FILTER,
		&unix.SockFprog{
			Len:    uint16(len(filter)),
			Filter: (*unix.SockFilter)(unsafe.Pointer(&filter[0])),
		})
	if err != nil {
		return fatal(errors.TraceMsg(err, "attaching filter failed"))
	}
	return nil
}

// enableReceiveErrors queues ICMP-class failures on the socket error
// queue, where DrainError can recover them without disturbing the data
// path.
func enableReceiveErrors(fd int, family int) error {
	level := unix.IPPROTO_IP
	option := unix.IP_RECVERR
	if family == unix.AF_INET6 {
		level = unix.IPPROTO_IPV6
		option = unix.IPV6_RECVERR
	}
	err := unix.SetsockoptInt(fd, level, option, 1)
	if err != nil {
		return fatal(errors.TraceMsg(err, "enabling socket error queue failed"))
	}
	return nil
}
