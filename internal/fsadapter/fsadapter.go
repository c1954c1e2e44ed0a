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

// Package fsadapter translates kernel-level lookup/getattr/readdir/read
// calls into internal/readerpool calls, per spec.md §4.3. ~15% of core
// per spec.md §2, trivially layered on the pool. Grounded on gcsfuse's
// internal/fs server (a fuseutil.FileSystem that embeds
// fuseutil.NotImplementedFileSystem and overrides only the operations it
// supports), narrowed here to a fixed one-file read-only tree.
package fsadapter

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/googlecloudplatform/httprangefs/common"
	"github.com/googlecloudplatform/httprangefs/internal/logger"
	"github.com/googlecloudplatform/httprangefs/internal/readerpool"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/timeutil"
)

// Fixed inode numbers, spec.md §4.3: inode 1 is the mount-root directory,
// inode 2 is the single regular file it contains.
const (
	rootInode = fuseops.RootInodeID
	fileInode = fuseops.InodeID(2)
)

// attrCacheTTL is the 60s attribute cache lifetime spec.md §4.3 and §6
// call out.
const attrCacheTTL = 60 * time.Second

// FS is a fuseutil.FileSystem presenting one regular file backed by a
// readerpool.Pool. All operations this type doesn't override fall through
// to fuseutil.NotImplementedFileSystem and return ENOSYS, which is correct
// for a read-only mount (spec.md §7(f): write attempts are refused).
type FS struct {
	fuseutil.NotImplementedFileSystem

	fileName string
	fileSize int64
	uid, gid uint32
	clock    timeutil.Clock
	pool     *readerpool.Pool
}

// New constructs the fixed one-file tree. fileSize is the value MetaProbe
// returned at mount; uid/gid are the invoking process's identity per
// spec.md §4.3.
func New(fileName string, fileSize int64, uid, gid uint32, clock timeutil.Clock, pool *readerpool.Pool) *FS {
	return &FS{
		fileName: fileName,
		fileSize: fileSize,
		uid:      uid,
		gid:      gid,
		clock:    clock,
		pool:     pool,
	}
}

func (fs *FS) dirAttrs() fuseops.InodeAttributes {
	now := fs.clock.Now()
	return fuseops.InodeAttributes{
		Nlink: 2,
		Mode:  0755 | os.ModeDir,
		Uid:   fs.uid,
		Gid:   fs.gid,
		Atime: now,
		Mtime: now,
		Ctime: now,
	}
}

func (fs *FS) fileAttrs() fuseops.InodeAttributes {
	now := fs.clock.Now()
	return fuseops.InodeAttributes{
		Size:  uint64(fs.fileSize),
		Nlink: 1,
		Mode:  0644,
		Uid:   fs.uid,
		Gid:   fs.gid,
		Atime: now,
		Mtime: now,
		Ctime: now,
	}
}

// LookUpInode resolves a name under the root directory, spec.md §4.3
// "lookup". The only resolvable name is the configured file name.
func (fs *FS) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	logger.Tracef("fsadapter: %s parent=%d name=%q", common.OpLookUpInode, op.Parent, op.Name)
	if op.Parent != rootInode || op.Name != fs.fileName {
		return fuse.ENOENT
	}
	op.Entry = fuseops.ChildInodeEntry{
		Child:                fileInode,
		Attributes:           fs.fileAttrs(),
		AttributesExpiration: fs.clock.Now().Add(attrCacheTTL),
		EntryExpiration:      fs.clock.Now().Add(attrCacheTTL),
	}
	return nil
}

// GetInodeAttributes returns directory or file attributes by inode,
// spec.md §4.3 "getattr".
func (fs *FS) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	logger.Tracef("fsadapter: %s inode=%d", common.OpGetInodeAttributes, op.Inode)
	switch op.Inode {
	case rootInode:
		op.Attributes = fs.dirAttrs()
	case fileInode:
		op.Attributes = fs.fileAttrs()
	default:
		return fuse.ENOENT
	}
	op.AttributesExpiration = fs.clock.Now().Add(attrCacheTTL)
	return nil
}

// OpenDir allows opening the root directory; there is nothing to track
// per-handle since the listing is static.
func (fs *FS) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	logger.Tracef("fsadapter: %s inode=%d", common.OpOpenDir, op.Inode)
	if op.Inode != rootInode {
		return fuse.ENOENT
	}
	return nil
}

// ReadDir emits exactly ".", "..", and the file entry, honoring the
// caller's continuation offset, spec.md §4.3 "readdir".
func (fs *FS) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	logger.Tracef("fsadapter: %s inode=%d offset=%d", common.OpReadDir, op.Inode, op.Offset)
	if op.Inode != rootInode {
		return fuse.ENOENT
	}

	entries := []fuseutil.Dirent{
		{Offset: 1, Inode: rootInode, Name: ".", Type: fuseutil.DT_Directory},
		{Offset: 2, Inode: rootInode, Name: "..", Type: fuseutil.DT_Directory},
		{Offset: 3, Inode: fileInode, Name: fs.fileName, Type: fuseutil.DT_File},
	}

	for _, e := range entries {
		if uint64(e.Offset) <= uint64(op.Offset) {
			continue
		}
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], e)
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

// OpenFile allows opening the single regular file for reading.
func (fs *FS) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	logger.Tracef("fsadapter: %s inode=%d", common.OpOpenFile, op.Inode)
	if op.Inode != fileInode {
		return fuse.ENOENT
	}
	return nil
}

// ReadFile delegates to the reader pool, spec.md §4.3 "read on inode 2
// delegates to ReaderPool.serve(DataAddr(offset, size))".
func (fs *FS) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	logger.Tracef("fsadapter: %s inode=%d offset=%d size=%d", common.OpReadFile, op.Inode, op.Offset, len(op.Dst))
	if op.Inode != fileInode {
		return fuse.ENOENT
	}
	if op.Offset < 0 {
		return fmt.Errorf("fsadapter: negative read offset %d", op.Offset)
	}
	if op.Offset >= fs.fileSize {
		op.BytesRead = 0
		return nil
	}

	size := int64(len(op.Dst))
	if op.Offset+size > fs.fileSize {
		size = fs.fileSize - op.Offset
	}

	data, err := fs.pool.Serve(ctx, op.Offset, size)
	if err != nil {
		return fmt.Errorf("fsadapter: ReadFile: %w", err)
	}
	op.BytesRead = copy(op.Dst, data)
	return nil
}
