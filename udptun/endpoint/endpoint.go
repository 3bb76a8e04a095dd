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

/*

Package endpoint is the transport-endpoint layer of the udptun tunnel
process. It owns every interaction with the operating system's socket,
packet-filter, and kernel-error-reporting facilities: opening and binding
the UDP and raw sockets the tunnel uses as endpoints, performing blocking
I/O through primitives with uniform failure semantics, and draining
kernel-reported transport errors -- ICMP-class notifications delivered
out-of-band on a socket error queue -- into a form the tunnel's forwarding
logic can act on.

Errors fall into two classes. Configuration-class failures, such as a
malformed address, a failed bind, or a failed filter attach, indicate that
the process cannot proceed in its current environment; these are returned
marked fatal and are distinguishable with IsFatal. Transient runtime
conditions, such as a receive failure or an empty error queue, are returned
as plain errors or sentinel statuses for the tunnel's steady-state loop to
absorb. Exit is the single termination point for fatal failures: it logs
the diagnostic, releases every descriptor in the Registry, and exits the
process with a non-zero status. The split lets the owning process keep the
original die-on-misconfiguration behavior while remaining testable.

The package is single threaded by contract: no operation starts a
goroutine, and all primitives block the calling thread for the duration of
the OS call, except WaitReadable, whose purpose is to let the caller choose
when to block and for how long.

Raw protocol sockets, packet-filter attachment, interface binding, and the
socket error queue exist only on Linux; on other platforms the factory
exposes only the datagram-socket path. RawSocketsSupported and
ErrorQueueSupported report availability.

*/
package endpoint

import (
	std_errors "errors"
	"os"

	"github.com/udptun-project/udptun-core/udptun/common"
)

// fatalError marks a configuration-class failure. A fatalError is never
// recovered from; the owning process resolves it by calling Exit.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return e.err.Error()
}

func (e *fatalError) Unwrap() error {
	return e.err
}

// fatal marks err as a configuration-class failure.
func fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal indicates whether err is a configuration-class failure: a
// condition which indicates the process cannot proceed in its current
// environment. Callers are expected to pass fatal errors to Exit rather
// than retry the failed operation.
func IsFatal(err error) bool {
	var f *fatalError
	return std_errors.As(err, &f)
}

// Exit is the termination point for fatal failures. Exit logs the given
// error, closes every descriptor in registry so the OS reliably sees
// closed sockets even under abrupt termination, and exits the process with
// a non-zero status. Both logger and registry may be nil.
func Exit(logger common.Logger, registry *Registry, err error) {
	if logger != nil {
		logger.WithTrace().Error(err)
	}
	if registry != nil {
		registry.CloseAll()
	}
	os.Exit(1)
}
