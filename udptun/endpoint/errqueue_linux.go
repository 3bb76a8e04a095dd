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
	"net"
	"syscall"
	"unsafe"

	"github.com/udptun-project/udptun-core/udptun/common"
	"github.com/udptun-project/udptun-core/udptun/common/errors"
	"golang.org/x/sys/unix"
)

// ErrorQueueSupported indicates whether the platform delivers ICMP-class
// transport errors on a socket error queue.
func ErrorQueueSupported() bool {
	return true
}

// DrainError pulls queued out-of-band transport errors from the error
// queue of the data socket fd, invoked when the OS signals an exceptional
// condition on the descriptor. buf receives each errored datagram excerpt
// and must be sized for the tunnel MTU.
//
// Each recovered error is decoded into a TransportError and logged. When
// state is non-nil, the error is additionally rebuilt as an ICMP packet
// and relayed through state toward forwardFD, so that, for example, an
// unreachable-destination condition can propagate to the far side of the
// tunnel.
//
// DrainError never blocks when the queue is empty: it returns DrainEmpty
// immediately. It returns DrainConsumed when at least one queued error was
// consumed, and DrainFailed with a tolerant error on an unexpected OS
// failure while draining.
func DrainError(
	logger common.Logger,
	fd int,
	buf []byte,
	forwardFD int,
	state TunnelState) (DrainStatus, error) {

	oob := make([]byte, 512)
	consumed := 0

	for {
		n, oobn, _, from, err := unix.Recvmsg(
			fd, buf, oob, unix.MSG_ERRQUEUE|unix.MSG_DONTWAIT)
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			break
		}
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return DrainFailed, errors.TraceMsg(err, "recvmsg MSG_ERRQUEUE failed")
		}

		consumed++

		transportError := parseTransportError(oob[:oobn], from)
		if transportError == nil {
			// Queue entry with no usable error control message; already
			// dequeued, nothing to report.
			continue
		}

		if logger != nil {
			logger.WithTraceFields(
				common.LogFields{
					"fd":    fd,
					"error": transportError.Error(),
				}).Warning("recovered transport error")
		}

		if state != nil {
			packet, err := transportError.ICMPPacket(buf[:n])
			if err != nil && logger != nil {
				logger.WithTraceFields(
					common.LogFields{"error": err}).Debug(
					"transport error not forwardable")
			}
			state.ForwardTransportError(forwardFD, packet, transportError)
		}
	}

	if consumed > 0 {
		return DrainConsumed, nil
	}
	return DrainEmpty, nil
}

// parseTransportError decodes the IP_RECVERR/IPV6_RECVERR control message
// accompanying an error queue entry. from is the original destination
// address of the errored datagram, as reported in the message name.
func parseTransportError(oob []byte, from unix.Sockaddr) *TransportError {

	cmsgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil
	}

	for _, cmsg := range cmsgs {

		isRecvErr :=
			(cmsg.Header.Level == unix.IPPROTO_IP &&
				cmsg.Header.Type == unix.IP_RECVERR) ||
				(cmsg.Header.Level == unix.IPPROTO_IPV6 &&
					cmsg.Header.Type == unix.IPV6_RECVERR)
		if !isRecvErr {
			continue
		}

		extendedErrSize := int(unsafe.Sizeof(unix.SockExtendedErr{}))
		if len(cmsg.Data) < extendedErrSize {
			continue
		}
		extendedErr := (*unix.SockExtendedErr)(unsafe.Pointer(&cmsg.Data[0]))

		transportError := &TransportError{
			Errno:  syscall.Errno(extendedErr.Errno),
			Origin: extendedErr.Origin,
			Type:   extendedErr.Type,
			Code:   extendedErr.Code,
			Info:   extendedErr.Info,
		}

		// SO_EE_OFFENDER: the reporting node's address follows the
		// extended error structure.
		offender := cmsg.Data[extendedErrSize:]
		if len(offender) >= unix.SizeofSockaddrInet4 {
			family := *(*uint16)(unsafe.Pointer(&offender[0]))
			switch family {
			case unix.AF_INET:
				rsa := (*unix.RawSockaddrInet4)(unsafe.Pointer(&offender[0]))
				transportError.Offender = append(net.IP{}, rsa.Addr[:]...)
			case unix.AF_INET6:
				if len(offender) >= unix.SizeofSockaddrInet6 {
					rsa := (*unix.RawSockaddrInet6)(unsafe.Pointer(&offender[0]))
					transportError.Offender = append(net.IP{}, rsa.Addr[:]...)
				}
			}
		}

		switch sa := from.(type) {
		case *unix.SockaddrInet4:
			transportError.Destination = append(net.IP{}, sa.Addr[:]...)
			transportError.DestinationPort = sa.Port
		case *unix.SockaddrInet6:
			transportError.Destination = append(net.IP{}, sa.Addr[:]...)
			transportError.DestinationPort = sa.Port
		}

		return transportError
	}

	return nil
}
