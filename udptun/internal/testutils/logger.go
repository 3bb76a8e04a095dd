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

package testutils

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/udptun-project/udptun-core/udptun/common"
	"github.com/udptun-project/udptun-core/udptun/common/errors"
)

// TestLogger is a common.Logger which prints log messages to stdout for
// inspection in test output.
type TestLogger struct {
	component string
}

func NewTestLogger() *TestLogger {
	return &TestLogger{}
}

func NewTestLoggerWithComponent(component string) *TestLogger {
	return &TestLogger{
		component: component,
	}
}

func (logger *TestLogger) WithTrace() common.LogTrace {
	return &testLoggerTrace{
		logger: logger,
		trace:  errors.CallerFunctionName(),
	}
}

func (logger *TestLogger) WithTraceFields(fields common.LogFields) common.LogTrace {
	return &testLoggerTrace{
		logger: logger,
		trace:  errors.CallerFunctionName(),
		fields: fields,
	}
}

type testLoggerTrace struct {
	logger *TestLogger
	trace  string
	fields common.LogFields
}

func (t *testLoggerTrace) log(priority string, args ...interface{}) {
	var component string
	if len(t.logger.component) > 0 {
		component = fmt.Sprintf("[%s]", t.logger.component)
	}
	var fields string
	if len(t.fields) > 0 {
		jsonFields, _ := json.Marshal(t.fields)
		fields = " " + string(jsonFields)
	}
	fmt.Printf(
		"[%s]%s %s: %s: %s%s\n",
		time.Now().UTC().Format(time.RFC3339),
		component,
		priority,
		t.trace,
		fmt.Sprint(args...),
		fields)
}

func (t *testLoggerTrace) Debug(args ...interface{}) {
	t.log("DEBUG", args...)
}

func (t *testLoggerTrace) Info(args ...interface{}) {
	t.log("INFO", args...)
}

func (t *testLoggerTrace) Warning(args ...interface{}) {
	t.log("WARNING", args...)
}

func (t *testLoggerTrace) Error(args ...interface{}) {
	t.log("ERROR", args...)
}
