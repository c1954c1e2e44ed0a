// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type LoggerTest struct {
	suite.Suite
	buf *bytes.Buffer
}

func TestLoggerSuite(t *testing.T) { suite.Run(t, new(LoggerTest)) }

func (t *LoggerTest) SetupTest() {
	t.buf = &bytes.Buffer{}
	SetOutput(t.buf)
	SetFormat("text")
	SetSeverity("INFO")
}

func (t *LoggerTest) emitAll() {
	Tracef("trace %d", 1)
	Debugf("debug %d", 2)
	Infof("info %d", 3)
	Warnf("warn %d", 4)
	Errorf("error %d", 5)
}

func (t *LoggerTest) TestSeverityThresholdFiltersLowerLevels() {
	SetSeverity("WARNING")
	t.emitAll()

	out := t.buf.String()
	assert.NotContains(t.T(), out, "severity=INFO")
	assert.Contains(t.T(), out, "severity=WARNING")
	assert.Contains(t.T(), out, "severity=ERROR")
}

func (t *LoggerTest) TestOffSuppressesEverything() {
	SetSeverity("OFF")
	t.emitAll()

	assert.Empty(t.T(), t.buf.String())
}

func (t *LoggerTest) TestTraceSeverityEmitsEverything() {
	SetSeverity("TRACE")
	t.emitAll()

	out := t.buf.String()
	for _, sev := range []string{"TRACE", "DEBUG", "INFO", "WARNING", "ERROR"} {
		assert.Contains(t.T(), out, "severity="+sev)
	}
}

func (t *LoggerTest) TestJSONFormat() {
	SetFormat("json")
	SetSeverity("INFO")
	Infof("hello %s", "world")

	out := t.buf.String()
	expected := regexp.MustCompile(`^\{"timestamp":\{"seconds":\d+,"nanos":\d+\},"severity":"INFO","message":"hello world"\}`)
	assert.True(t.T(), expected.MatchString(out), out)
}

func (t *LoggerTest) TestParseSeverityUnknownDefaultsToInfo() {
	assert.Equal(t.T(), LevelInfo, ParseSeverity("not-a-level"))
}
