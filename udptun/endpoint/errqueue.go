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
	"fmt"
	"net"
	"syscall"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/udptun-project/udptun-core/udptun/common/errors"
)

// DrainStatus reports the outcome of a DrainError call. The three cases
// are distinguished because the caller's reaction differs for each:
// continue normally on DrainEmpty, react to the recovered condition on
// DrainConsumed, and treat a DrainFailed as a transient I/O fault.
type DrainStatus int

const (
	// DrainEmpty indicates the socket error queue had no pending entries.
	DrainEmpty DrainStatus = iota

	// DrainConsumed indicates at least one queued transport error was
	// consumed.
	DrainConsumed

	// DrainFailed indicates an unexpected OS failure while draining.
	DrainFailed
)

// Transport error origin codes, as reported by the kernel with each error
// queue entry.
const (
	TransportErrorOriginNone  uint8 = 0
	TransportErrorOriginLocal uint8 = 1
	TransportErrorOriginICMP  uint8 = 2
	TransportErrorOriginICMP6 uint8 = 3
)

// TransportError is a kernel-reported transport error recovered from a
// socket error queue: typically an ICMP destination-unreachable
// notification for a previously sent datagram.
type TransportError struct {

	// Errno is the error condition, e.g. ECONNREFUSED for an ICMP port
	// unreachable.
	Errno syscall.Errno

	// Origin is one of the TransportErrorOrigin codes.
	Origin uint8

	// Type and Code are the ICMP type and code when Origin is
	// TransportErrorOriginICMP or TransportErrorOriginICMP6.
	Type uint8
	Code uint8

	// Info is origin-specific data, e.g. the MTU for a
	// fragmentation-needed notification.
	Info uint32

	// Offender is the address of the node reporting the error, when known.
	Offender net.IP

	// Destination and DestinationPort identify the original destination
	// of the errored datagram.
	Destination     net.IP
	DestinationPort int
}

// Error returns a human-readable description of the transport error for
// diagnostics.
func (transportError *TransportError) Error() string {
	description := fmt.Sprintf(
		"%s: %s",
		transportErrorOriginName(transportError.Origin),
		transportError.Errno.Error())
	if transportError.Offender != nil {
		description += fmt.Sprintf(" reported by %s", transportError.Offender)
	}
	if transportError.Destination != nil {
		description += fmt.Sprintf(
			" for destination %s:%d",
			transportError.Destination,
			transportError.DestinationPort)
	}
	return description
}

func transportErrorOriginName(origin uint8) string {
	switch origin {
	case TransportErrorOriginLocal:
		return "local"
	case TransportErrorOriginICMP:
		return "ICMP"
	case TransportErrorOriginICMP6:
		return "ICMPv6"
	}
	return "unknown"
}

// ICMPPacket rebuilds the transport error as an ICMP
// destination-unreachable packet, with original, the errored datagram
// excerpt returned by the error queue, as the ICMP payload. The packet is
// addressed from the offender to the original destination, making it
// suitable for injection into the tunnel so the far side observes the
// same condition the kernel reported locally.
//
// Only errors of ICMP origin have an ICMP representation; rebuilding a
// local-origin error fails.
func (transportError *TransportError) ICMPPacket(original []byte) ([]byte, error) {

	if transportError.Offender == nil || transportError.Destination == nil {
		return nil, errors.TraceNew("transport error has no addresses")
	}

	buffer := gopacket.NewSerializeBuffer()
	options := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	switch transportError.Origin {

	case TransportErrorOriginICMP:
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolICMPv4,
			SrcIP:    transportError.Offender.To4(),
			DstIP:    transportError.Destination.To4(),
		}
		icmp := &layers.ICMPv4{
			TypeCode: layers.CreateICMPv4TypeCode(
				transportError.Type, transportError.Code),
		}
		err := gopacket.SerializeLayers(
			buffer, options, ip, icmp, gopacket.Payload(original))
		if err != nil {
			return nil, errors.Trace(err)
		}

	case TransportErrorOriginICMP6:
		ip := &layers.IPv6{
			Version:    6,
			NextHeader: layers.IPProtocolICMPv6,
			HopLimit:   64,
			SrcIP:      transportError.Offender.To16(),
			DstIP:      transportError.Destination.To16(),
		}
		icmp := &layers.ICMPv6{
			TypeCode: layers.CreateICMPv6TypeCode(
				transportError.Type, transportError.Code),
		}
		err := icmp.SetNetworkLayerForChecksum(ip)
		if err != nil {
			return nil, errors.Trace(err)
		}
		err = gopacket.SerializeLayers(
			buffer, options, ip, icmp, gopacket.Payload(original))
		if err != nil {
			return nil, errors.Trace(err)
		}

	default:
		return nil, errors.Tracef(
			"no ICMP representation for origin %s",
			transportErrorOriginName(transportError.Origin))
	}

	return buffer.Bytes(), nil
}

// TunnelState is an opaque reference to the surrounding tunnel's
// forwarding context. DrainError calls ForwardTransportError only to relay
// a recovered transport error toward the descriptor that should react to
// it; the endpoint layer never reads or mutates tunnel data structures.
//
// packet is the rebuilt ICMP packet from TransportError.ICMPPacket, or nil
// when the error has no ICMP representation.
type TunnelState interface {
	ForwardTransportError(fd int, packet []byte, transportError *TransportError)
}
