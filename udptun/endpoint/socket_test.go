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
	"bufio"
	"bytes"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/udptun-project/udptun-core/udptun/internal/testutils"
	"golang.org/x/sys/unix"
)

func newTestFactory() *SocketFactory {
	return &SocketFactory{
		Logger:   testutils.NewTestLogger(),
		Registry: NewRegistry(),
	}
}

// boundUDPPort returns the port the kernel assigned to a socket bound with
// port 0.
func boundUDPPort(t *testing.T, fd int) int {
	t.Helper()
	sa, err := unix.Getsockname(fd)
	require.NoError(t, err)
	sa4, ok := sa.(*unix.SockaddrInet4)
	require.True(t, ok)
	return sa4.Port
}

func TestUDPSocketLoopback(t *testing.T) {

	factory := newTestFactory()
	defer factory.Registry.CloseAll()

	sender, err := factory.OpenUDPSocket4(0, "127.0.0.1", true)
	require.NoError(t, err)

	receiver, err := factory.OpenUDPSocket4(0, "127.0.0.1", true)
	require.NoError(t, err)
	receiverPort := boundUDPPort(t, receiver)

	payload := make([]byte, 64)
	_, err = rand.Read(payload)
	require.NoError(t, err)

	destination, err := ResolveIPv4Address("127.0.0.1", receiverPort)
	require.NoError(t, err)

	sent, err := Send4(sender, destination, payload)
	require.NoError(t, err)
	require.Equal(t, 64, sent)

	readyCount, ready, err := WaitReadable([]int{receiver}, 1*time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, readyCount)
	require.Equal(t, []int{receiver}, ready)

	buf := make([]byte, 2048)
	received, from, err := RecvFrom(receiver, buf)
	require.NoError(t, err)
	require.Equal(t, 64, received)
	require.True(t, bytes.Equal(payload, buf[:received]))

	from4, ok := from.(*unix.SockaddrInet4)
	require.True(t, ok)
	require.Equal(t, boundUDPPort(t, sender), from4.Port)
}

func TestUDPSocketIPv6Loopback(t *testing.T) {

	factory := newTestFactory()
	defer factory.Registry.CloseAll()

	receiver, err := factory.OpenUDPSocket6(0, "::1", true)
	if err != nil {
		t.Skipf("test requires IPv6 loopback: %v", err)
	}

	sa, err := unix.Getsockname(receiver)
	require.NoError(t, err)
	receiverPort := sa.(*unix.SockaddrInet6).Port

	sender, err := factory.OpenUDPSocket6(0, "::1", true)
	require.NoError(t, err)

	payload := make([]byte, 64)
	_, err = rand.Read(payload)
	require.NoError(t, err)

	destination, err := ResolveIPv6Address("::1", receiverPort)
	require.NoError(t, err)

	sent, err := Send6(sender, destination, payload)
	require.NoError(t, err)
	require.Equal(t, 64, sent)

	buf := make([]byte, 2048)
	received, err := Recv(receiver, buf)
	require.NoError(t, err)
	require.Equal(t, 64, received)
	require.True(t, bytes.Equal(payload, buf[:received]))
}

func TestOpenUDPSocketAlreadyBound(t *testing.T) {

	factory := newTestFactory()
	defer factory.Registry.CloseAll()

	fd, err := factory.OpenUDPSocket4(0, "127.0.0.1", true)
	require.NoError(t, err)
	port := boundUDPPort(t, fd)

	_, err = factory.OpenUDPSocket4(port, "127.0.0.1", false)
	require.Error(t, err)
	require.True(t, IsFatal(err))
}

func TestFailurePolicies(t *testing.T) {

	factory := newTestFactory()

	fd, err := factory.OpenUDPSocket4(0, "127.0.0.1", false)
	require.NoError(t, err)

	// A closed descriptor produces an OS error on every operation; the
	// tolerant family must return it plain, the fail-fast family marked
	// fatal.
	require.NoError(t, unix.Close(fd))

	buf := make([]byte, 64)

	n, err := Recv(fd, buf)
	require.Error(t, err)
	require.False(t, IsFatal(err))
	require.Equal(t, -1, n)

	n, _, err = RecvFrom(fd, buf)
	require.Error(t, err)
	require.False(t, IsFatal(err))
	require.Equal(t, -1, n)

	n, err = Write(fd, buf)
	require.Error(t, err)
	require.True(t, IsFatal(err))
	require.Equal(t, -1, n)

	n, err = Read(fd, buf)
	require.Error(t, err)
	require.True(t, IsFatal(err))
	require.Equal(t, -1, n)

	destination, err := ResolveIPv4Address("127.0.0.1", 9001)
	require.NoError(t, err)
	n, err = Send4(fd, destination, buf)
	require.Error(t, err)
	require.True(t, IsFatal(err))
	require.Equal(t, -1, n)
}

func TestBufferedWrite(t *testing.T) {

	var sink bytes.Buffer
	writer := bufio.NewWriter(&sink)

	payload := make([]byte, 64)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	n, err := BufferedWrite(writer, payload)
	require.NoError(t, err)
	require.Equal(t, 64, n)

	require.NoError(t, writer.Flush())
	require.True(t, bytes.Equal(payload, sink.Bytes()))
}

func TestWaitReadableTimeout(t *testing.T) {

	factory := newTestFactory()
	defer factory.Registry.CloseAll()

	fd, err := factory.OpenUDPSocket4(0, "127.0.0.1", true)
	require.NoError(t, err)

	// Zero-wait poll on an idle socket.
	readyCount, ready, err := WaitReadable([]int{fd}, 0)
	require.NoError(t, err)
	require.Equal(t, 0, readyCount)
	require.Empty(t, ready)

	// Bounded wait on an idle socket.
	start := time.Now()
	readyCount, _, err = WaitReadable([]int{fd}, 100*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 0, readyCount)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}
