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
	"time"

	"github.com/udptun-project/udptun-core/udptun/common/errors"
	"golang.org/x/sys/unix"
)

// The I/O primitives operate on raw byte buffers and integer descriptors,
// blocking the calling thread for the duration of the OS call. Two failure
// policies apply. The fail-fast family -- Send4, Send6, Read, Write,
// BufferedWrite -- returns OS-reported failures as fatal-class errors, as
// a failed send or device write indicates a broken endpoint the tunnel
// cannot proceed without. The tolerant family -- Recv, RecvFrom,
// WaitReadable -- returns plain errors with a -1 count, as receive and
// readiness failures are expected steady-state conditions on a long-lived
// tunnel and must not terminate it.

// Send4 transmits buf to the IPv4 destination sa on the datagram or raw
// socket fd, returning the exact count of bytes sent.
func Send4(fd int, sa *unix.SockaddrInet4, buf []byte) (int, error) {
	err := unix.Sendto(fd, buf, 0, sa)
	if err != nil {
		return -1, fatal(errors.TraceMsg(err, "sendto failed"))
	}
	return len(buf), nil
}

// Send6 is the IPv6 variant of Send4.
func Send6(fd int, sa *unix.SockaddrInet6, buf []byte) (int, error) {
	err := unix.Sendto(fd, buf, 0, sa)
	if err != nil {
		return -1, fatal(errors.TraceMsg(err, "sendto failed"))
	}
	return len(buf), nil
}

// Recv receives a datagram from fd into buf, returning the count of bytes
// received, or -1 and a tolerant error on failure.
func Recv(fd int, buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(fd, buf, 0)
	if err != nil {
		return -1, errors.TraceMsg(err, "recv failed")
	}
	return n, nil
}

// RecvFrom receives a datagram from fd into buf, returning the count of
// bytes received and the source address, or -1 and a tolerant error on
// failure.
func RecvFrom(fd int, buf []byte) (int, unix.Sockaddr, error) {
	n, sa, err := unix.Recvfrom(fd, buf, 0)
	if err != nil {
		return -1, nil, errors.TraceMsg(err, "recvfrom failed")
	}
	return n, sa, nil
}

// Read reads from the descriptor fd into buf, returning the exact count of
// bytes read. Used for tun device descriptors as well as sockets.
func Read(fd int, buf []byte) (int, error) {
	n, err := unix.Read(fd, buf)
	if err != nil {
		return -1, fatal(errors.TraceMsg(err, "read failed"))
	}
	return n, nil
}

// Write writes buf to the descriptor fd, returning the exact count of
// bytes written.
func Write(fd int, buf []byte) (int, error) {
	n, err := unix.Write(fd, buf)
	if err != nil {
		return -1, fatal(errors.TraceMsg(err, "write failed"))
	}
	return n, nil
}

// BufferedWrite writes buf to the buffered writer, returning the exact
// count of bytes written.
func BufferedWrite(writer *bufio.Writer, buf []byte) (int, error) {
	n, err := writer.Write(buf)
	if err != nil {
		return -1, fatal(errors.TraceMsg(err, "buffered write failed"))
	}
	return n, nil
}

// WaitReadable blocks until at least one descriptor in fds is readable, or
// until the timeout elapses. A negative timeout waits indefinitely; a zero
// timeout polls. Returns the number of ready descriptors and the ready
// descriptors themselves.
//
// WaitReadable is tolerant: a failed readiness check is not by itself a
// data-loss event, so failures, including EINTR, are returned as plain
// errors with a -1 count for the caller's loop to retry.
func WaitReadable(fds []int, timeout time.Duration) (int, []int, error) {

	var readSet unix.FdSet
	maxFD := -1
	for _, fd := range fds {
		readSet.Set(fd)
		if fd > maxFD {
			maxFD = fd
		}
	}

	var tv *unix.Timeval
	if timeout >= 0 {
		timeval := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &timeval
	}

	n, err := unix.Select(maxFD+1, &readSet, nil, nil, tv)
	if err != nil {
		return -1, nil, errors.TraceMsg(err, "select failed")
	}

	ready := make([]int, 0, n)
	for _, fd := range fds {
		if readSet.IsSet(fd) {
			ready = append(ready, fd)
		}
	}
	return n, ready, nil
}
