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

// Package fsmount builds the jacobsa/fuse mount configuration and performs
// the mount/join lifecycle, the "Mount driver" component of spec.md §2
// (out of core, ~15%). Grounded on gcsfuse's cmd/mount.go
// (getFuseMountConfig and the fuse.Mount/mfs.Join call sequence), narrowed
// to the read-only single-file tree and the --auto_unmount/--allow_root
// flags spec.md §6 names.
package fsmount

import (
	"fmt"

	"github.com/googlecloudplatform/httprangefs/internal/fsadapter"
	"github.com/googlecloudplatform/httprangefs/internal/logger"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
)

// Options carries the mount-time flags spec.md §6 names.
type Options struct {
	AutoUnmount bool
	AllowRoot   bool
}

func mountConfig(opts Options) *fuse.MountConfig {
	mountOpts := map[string]string{"ro": ""}
	if opts.AutoUnmount {
		mountOpts["auto_unmount"] = ""
	}
	if opts.AllowRoot {
		mountOpts["allow_root"] = ""
	}
	return &fuse.MountConfig{
		FSName:      "httprangefs",
		Subtype:     "httprangefs",
		VolumeName:  "httprangefs",
		Options:     mountOpts,
		ErrorLogger: logger.NewStdLogger(logger.LevelError, "fuse: "),
		DebugLogger: logger.NewStdLogger(logger.LevelTrace, "fuse_debug: "),
	}
}

// Mount mounts fs at mountPoint and returns the mounted filesystem handle;
// callers should defer Unmount and then call Join to block until the
// kernel unmounts it.
func Mount(mountPoint string, fs *fsadapter.FS, opts Options) (*fuse.MountedFileSystem, error) {
	server := fuseutil.NewFileSystemServer(fs)
	mfs, err := fuse.Mount(mountPoint, server, mountConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("fsmount: mount %s: %w", mountPoint, err)
	}
	return mfs, nil
}

// Unmount requests the kernel tear down the mount at mountPoint.
func Unmount(mountPoint string) error {
	if err := fuse.Unmount(mountPoint); err != nil {
		return fmt.Errorf("fsmount: unmount %s: %w", mountPoint, err)
	}
	return nil
}
