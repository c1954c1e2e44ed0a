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

// Package dataaddr defines the absolute-offset address of a byte range in
// the remote resource.
package dataaddr

import "fmt"

// DataAddr names a byte range [Offset, Offset+Size) in resource coordinates.
type DataAddr struct {
	Offset int64
	Size   int64
}

// New returns a DataAddr, panicking on a negative offset or size — callers
// translate kernel read requests, which are never negative.
func New(offset, size int64) DataAddr {
	if offset < 0 || size < 0 {
		panic(fmt.Sprintf("dataaddr: invalid range offset=%d size=%d", offset, size))
	}
	return DataAddr{Offset: offset, Size: size}
}

// End returns the exclusive end of the range.
func (a DataAddr) End() int64 {
	return a.Offset + a.Size
}

// Empty reports whether the range spans zero bytes.
func (a DataAddr) Empty() bool {
	return a.Size == 0
}

// Within reports whether the range fits inside [0, resourceSize].
func (a DataAddr) Within(resourceSize int64) bool {
	return a.End() <= resourceSize
}

func (a DataAddr) String() string {
	return fmt.Sprintf("[%d,%d)", a.Offset, a.End())
}
