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
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"
)

func TestTransportErrorDescription(t *testing.T) {

	transportError := &TransportError{
		Errno:           syscall.ECONNREFUSED,
		Origin:          TransportErrorOriginICMP,
		Type:            3,
		Code:            3,
		Offender:        net.ParseIP("127.0.0.1"),
		Destination:     net.ParseIP("127.0.0.1"),
		DestinationPort: 9002,
	}

	description := transportError.Error()
	require.Contains(t, description, "ICMP")
	require.Contains(t, description, "connection refused")
	require.Contains(t, description, "127.0.0.1:9002")
}

func TestTransportErrorICMPPacket(t *testing.T) {

	original := []byte("original datagram excerpt")

	transportError := &TransportError{
		Errno:           syscall.ECONNREFUSED,
		Origin:          TransportErrorOriginICMP,
		Type:            3,
		Code:            3,
		Offender:        net.ParseIP("192.168.1.1"),
		Destination:     net.ParseIP("192.168.1.2"),
		DestinationPort: 9002,
	}

	packetBytes, err := transportError.ICMPPacket(original)
	require.NoError(t, err)

	packet := gopacket.NewPacket(
		packetBytes, layers.LayerTypeIPv4, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())

	ipLayer := packet.Layer(layers.LayerTypeIPv4)
	require.NotNil(t, ipLayer)
	ip := ipLayer.(*layers.IPv4)
	require.True(t, ip.SrcIP.Equal(transportError.Offender))
	require.True(t, ip.DstIP.Equal(transportError.Destination))

	icmpLayer := packet.Layer(layers.LayerTypeICMPv4)
	require.NotNil(t, icmpLayer)
	icmp := icmpLayer.(*layers.ICMPv4)
	require.Equal(t, uint8(layers.ICMPv4TypeDestinationUnreachable), icmp.TypeCode.Type())
	require.Equal(t, uint8(layers.ICMPv4CodePort), icmp.TypeCode.Code())
	require.Equal(t, original, icmp.LayerPayload())
}

func TestTransportErrorICMPv6Packet(t *testing.T) {

	original := []byte("original datagram excerpt")

	transportError := &TransportError{
		Errno:           syscall.ECONNREFUSED,
		Origin:          TransportErrorOriginICMP6,
		Type:            uint8(layers.ICMPv6TypeDestinationUnreachable),
		Code:            uint8(layers.ICMPv6CodePortUnreachable),
		Offender:        net.ParseIP("fd00::1"),
		Destination:     net.ParseIP("fd00::2"),
		DestinationPort: 9002,
	}

	packetBytes, err := transportError.ICMPPacket(original)
	require.NoError(t, err)

	packet := gopacket.NewPacket(
		packetBytes, layers.LayerTypeIPv6, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())

	icmpLayer := packet.Layer(layers.LayerTypeICMPv6)
	require.NotNil(t, icmpLayer)
	icmp := icmpLayer.(*layers.ICMPv6)
	require.Equal(t, uint8(layers.ICMPv6TypeDestinationUnreachable), icmp.TypeCode.Type())
}

func TestTransportErrorNoICMPRepresentation(t *testing.T) {

	transportError := &TransportError{
		Errno:       syscall.EHOSTUNREACH,
		Origin:      TransportErrorOriginLocal,
		Offender:    net.ParseIP("127.0.0.1"),
		Destination: net.ParseIP("127.0.0.1"),
	}

	_, err := transportError.ICMPPacket(nil)
	require.Error(t, err)

	// Missing addresses are also not representable.
	transportError = &TransportError{
		Errno:  syscall.ECONNREFUSED,
		Origin: TransportErrorOriginICMP,
	}
	_, err = transportError.ICMPPacket(nil)
	require.Error(t, err)
}
