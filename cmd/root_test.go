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

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeaderLine(t *testing.T) {
	h, err := parseHeaderLine("Authorization: Bearer abc123")

	require.NoError(t, err)
	assert.Equal(t, "Authorization", h.Name)
	assert.Equal(t, "Bearer abc123", h.Value)
}

func TestParseHeaderLineRejectsMissingColon(t *testing.T) {
	_, err := parseHeaderLine("not-a-header")

	assert.Error(t, err)
}
