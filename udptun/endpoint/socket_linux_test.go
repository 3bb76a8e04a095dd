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
	std_errors "errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestOpenRawSocket4(t *testing.T) {

	require.True(t, RawSocketsSupported())

	factory := newTestFactory()
	defer factory.Registry.CloseAll()

	filter, err := UDPDestPortFilter(9001)
	require.NoError(t, err)

	fd, err := factory.OpenRawSocket4(
		0, "127.0.0.1", filter, "lo", unix.IPPROTO_UDP, true, false)
	if err != nil && std_errors.Is(err, unix.EPERM) {
		t.Skipf("test requires CAP_NET_RAW: %v", err)
	}
	require.NoError(t, err)
	require.GreaterOrEqual(t, fd, 0)
}

func TestOpenRawTCPSocket4(t *testing.T) {

	factory := newTestFactory()
	defer factory.Registry.CloseAll()

	fd, err := factory.OpenRawTCPSocket4(0, "127.0.0.1", nil, "", true, false)
	if err != nil && std_errors.Is(err, unix.EPERM) {
		t.Skipf("test requires CAP_NET_RAW: %v", err)
	}
	require.NoError(t, err)
	require.GreaterOrEqual(t, fd, 0)
}

func TestOpenRawSocketRestrictedMode(t *testing.T) {

	factory := newTestFactory()
	defer factory.Registry.CloseAll()

	// In restricted mode the interface binding is suppressed, not failed;
	// the open must still produce a bound socket.
	fd, err := factory.OpenRawSocket4(
		0, "127.0.0.1", nil, "lo", unix.IPPROTO_UDP, true, true)
	if err != nil && std_errors.Is(err, unix.EPERM) {
		t.Skipf("test requires CAP_NET_RAW: %v", err)
	}
	require.NoError(t, err)
	require.GreaterOrEqual(t, fd, 0)
}

func TestAttachFilterEmptyProgram(t *testing.T) {

	factory := newTestFactory()
	defer factory.Registry.CloseAll()

	fd, err := factory.OpenUDPSocket4(0, "127.0.0.1", true)
	require.NoError(t, err)

	err = attachFilter(fd, nil)
	require.Error(t, err)
	require.True(t, IsFatal(err))
}
