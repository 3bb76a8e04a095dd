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

const (
	ipv4ProtocolOffset       = 9
	ipv4FragmentOffset       = 6
	udpDestinationPortOffset = 2
	ipProtocolUDP            = 17
)

// UDPDestPortFilter assembles a classic BPF program which accepts UDP
// datagrams addressed to the given destination port and rejects everything
// else. The program inspects full IPv4 packets as delivered to a raw IPv4
// socket, accounting for a variable-length IP header, and passes over
// non-initial fragments, which carry no UDP header.
//
// The result is suitable for the filter argument of
// SocketFactory.OpenRawSocket4. Callers with other filtering needs supply
// their own golang.org/x/net/bpf programs.
func UDPDestPortFilter(port uint16) ([]bpf.RawInstruction, error) {

	program := []bpf.Instruction{
		bpf.LoadAbsolute{Off: ipv4ProtocolOffset, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: ipProtocolUDP, SkipFalse: 6},
		bpf.LoadAbsolute{Off: ipv4FragmentOffset, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpBitsSet, Val: 0x1fff, SkipTrue: 4},
		bpf.LoadMemShift{Off: 0},
		bpf.LoadIndirect{Off: udpDestinationPortOffset, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: uint32(port), SkipTrue: 1},
		bpf.RetConstant{Val: 65535},
		bpf.RetConstant{Val: 0},
	}

	raw, err := bpf.Assemble(program)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return raw, nil
}
