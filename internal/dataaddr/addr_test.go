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

package dataaddr_test

import (
	"testing"

	"github.com/googlecloudplatform/httprangefs/internal/dataaddr"
	"github.com/stretchr/testify/assert"
)

func TestNewPanicsOnNegativeOffset(t *testing.T) {
	assert.Panics(t, func() { dataaddr.New(-1, 10) })
}

func TestNewPanicsOnNegativeSize(t *testing.T) {
	assert.Panics(t, func() { dataaddr.New(0, -1) })
}

func TestEnd(t *testing.T) {
	a := dataaddr.New(100, 50)
	assert.Equal(t, int64(150), a.End())
}

func TestEmpty(t *testing.T) {
	assert.True(t, dataaddr.New(10, 0).Empty())
	assert.False(t, dataaddr.New(10, 1).Empty())
}

func TestWithin(t *testing.T) {
	a := dataaddr.New(90, 10)
	assert.True(t, a.Within(100))
	assert.False(t, a.Within(99))
}

func TestString(t *testing.T) {
	assert.Equal(t, "[10,20)", dataaddr.New(10, 10).String())
}
