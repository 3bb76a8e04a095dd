//go:build !linux
// +build !linux

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
	"github.com/udptun-project/udptun-core/udptun/common"
)

// ErrorQueueSupported indicates whether the platform delivers ICMP-class
// transport errors on a socket error queue.
func ErrorQueueSupported() bool {
	return false
}

// DrainError reports an empty queue on platforms with no socket error
// queue facility.
func DrainError(
	_ common.Logger, _ int, _ []byte, _ int, _ TunnelState) (DrainStatus, error) {
	return DrainEmpty, nil
}
