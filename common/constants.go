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

package common

// FUSE operation names, trimmed to the read-only subset FsAdapter actually
// implements (spec.md §4.3); used as log field values so a single log line
// identifies which kernel callback produced it.
const (
	OpLookUpInode        = "LookUpInode"
	OpGetInodeAttributes = "GetInodeAttributes"
	OpOpenDir            = "OpenDir"
	OpReadDir            = "ReadDir"
	OpOpenFile           = "OpenFile"
	OpReadFile           = "ReadFile"
)
