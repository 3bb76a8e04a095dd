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

Package logging provides a logrus-backed implementation of the
common.Logger interface used by the udptun library packages.

*/
package logging

import (
	"github.com/sirupsen/logrus"
	"github.com/udptun-project/udptun-core/udptun/common"
	"github.com/udptun-project/udptun-core/udptun/common/errors"
)

// ContextLogger adapts a logrus.Logger to common.Logger, adding a "trace"
// field containing the caller's function name and source file line number
// to each log entry.
type ContextLogger struct {
	*logrus.Logger
}

// NewContextLogger creates a ContextLogger backed by the given
// logrus.Logger. When logger is nil, logrus.StandardLogger is used.
func NewContextLogger(logger *logrus.Logger) *ContextLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ContextLogger{Logger: logger}
}

// WithTrace implements common.Logger.
func (logger *ContextLogger) WithTrace() common.LogTrace {
	return logger.Logger.WithFields(
		logrus.Fields{
			"trace": errors.CallerFunctionName(),
		})
}

// WithTraceFields implements common.Logger.
func (logger *ContextLogger) WithTraceFields(fields common.LogFields) common.LogTrace {
	entryFields := logrus.Fields{
		"trace": errors.CallerFunctionName(),
	}
	for name, value := range fields {
		if name == "trace" {
			name = "fields.trace"
		}
		entryFields[name] = value
	}
	return logger.Logger.WithFields(entryFields)
}
