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

	"github.com/udptun-project/udptun-core/udptun/common/errors"
	"golang.org/x/sys/unix"
)

// ResolveIPv4Address builds the IPv4 socket address for the given literal
// address string and port. A malformed address or an address of the wrong
// family is a configuration-class failure.
func ResolveIPv4Address(addr string, port int) (*unix.SockaddrInet4, error) {
	ip, err := parseAddress(addr, port, true)
	if err != nil {
		return nil, errors.Trace(err)
	}
	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip.To4())
	return sa, nil
}

// ResolveIPv6Address builds the IPv6 socket address for the given literal
// address string and port. A malformed address or an address of the wrong
// family is a configuration-class failure.
func ResolveIPv6Address(addr string, port int) (*unix.SockaddrInet6, error) {
	ip, err := parseAddress(addr, port, false)
	if err != nil {
		return nil, errors.Trace(err)
	}
	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], ip.To16())
	return sa, nil
}

func parseAddress(addr string, port int, wantIPv4 bool) (net.IP, error) {
	if port < 0 || port > 65535 {
		return nil, fatal(errors.Tracef("invalid port: %d", port))
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil, fatal(errors.Tracef("invalid IP address: %s", addr))
	}
	isIPv4 := ip.To4() != nil
	if isIPv4 != wantIPv4 {
		return nil, fatal(errors.Tracef("wrong address family: %s", addr))
	}
	return ip, nil
}

// InterfaceForIPv4Address returns the name of the network interface the
// given IPv4 address is configured on.
//
// The caller must supply the address as actually assigned to the
// interface, not a publicly-routable address mapped to it by a NAT; the
// OS interface table cannot be resolved through a NAT. An address owned by
// no interface is a configuration-class failure.
func InterfaceForIPv4Address(addr string) (string, error) {
	name, err := interfaceForAddress(addr, true)
	return name, errors.Trace(err)
}

// InterfaceForIPv6Address is the IPv6 variant of InterfaceForIPv4Address.
func InterfaceForIPv6Address(addr string) (string, error) {
	name, err := interfaceForAddress(addr, false)
	return name, errors.Trace(err)
}

func interfaceForAddress(addr string, wantIPv4 bool) (string, error) {

	ip, err := parseAddress(addr, 0, wantIPv4)
	if err != nil {
		return "", errors.Trace(err)
	}

	netInterfaces, err := net.Interfaces()
	if err != nil {
		return "", fatal(errors.Trace(err))
	}

	for _, netInterface := range netInterfaces {
		addrs, err := netInterface.Addrs()
		if err != nil {
			return "", fatal(errors.Trace(err))
		}
		for _, interfaceAddr := range addrs {
			var interfaceIP net.IP
			switch a := interfaceAddr.(type) {
			case *net.IPNet:
				interfaceIP = a.IP
			case *net.IPAddr:
				interfaceIP = a.IP
			}
			if interfaceIP != nil && interfaceIP.Equal(ip) {
				return netInterface.Name, nil
			}
		}
	}

	return "", fatal(errors.Tracef("no interface has address %s", addr))
}
