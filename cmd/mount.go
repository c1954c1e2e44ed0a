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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/googlecloudplatform/httprangefs/internal/fsadapter"
	"github.com/googlecloudplatform/httprangefs/internal/fsmount"
	"github.com/googlecloudplatform/httprangefs/internal/logger"
	"github.com/googlecloudplatform/httprangefs/internal/metaprobe"
	"github.com/googlecloudplatform/httprangefs/internal/perms"
	"github.com/googlecloudplatform/httprangefs/internal/rangereader"
	"github.com/googlecloudplatform/httprangefs/internal/readerpool"
	"github.com/googlecloudplatform/httprangefs/metrics"
	"github.com/jacobsa/timeutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
)

// mountParams bundles everything runMount needs, assembled from flags in
// root.go so the orchestration below stays free of cobra concerns.
type mountParams struct {
	mountPoint string
	url        string
	headers    []rangereader.Header

	autoUnmount bool
	allowRoot   bool

	fileName   string
	maxReaders int
	readerCfg  rangereader.Config
}

// runMount wires MetaProbe -> ReaderPool -> FsAdapter -> the FUSE mount
// driver, per spec.md §2's data flow, and blocks until the kernel tears
// the mount down. Mount failure and metadata-probe failure are both
// fatal at startup, per spec.md §7(a)/(b).
func runMount(p mountParams) error {
	client := &fasthttp.Client{}

	logger.Infof("httprangefs: probing %s for resource size", p.url)
	size, err := metaprobe.Probe(p.url, p.headers, client)
	if err != nil {
		return fmt.Errorf("metadata probe failed: %w", err)
	}
	logger.Infof("httprangefs: resource size is %d bytes", size)

	uid, gid, err := perms.MyUserAndGroup()
	if err != nil {
		return fmt.Errorf("determining invoking uid/gid: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	pool := readerpool.New(p.url, size, p.headers, client, p.readerCfg,
		readerpool.WithMaxReaders(p.maxReaders),
		readerpool.WithMetrics(m),
	)
	defer pool.Close()

	fs := fsadapter.New(p.fileName, size, uid, gid, timeutil.RealClock(), pool)

	logger.Infof("httprangefs: mounting %s at %s", p.url, p.mountPoint)
	mfs, err := fsmount.Mount(p.mountPoint, fs, fsmount.Options{
		AutoUnmount: p.autoUnmount,
		AllowRoot:   p.allowRoot,
	})
	if err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}

	// Two goroutines race to decide how the mount ends: a signal handler
	// that asks the kernel to unmount, and mfs.Join waiting for that
	// unmount to actually land (which may happen without a signal, e.g. an
	// external fusermount -u). errgroup lets either one's error end the
	// whole RunE call without a hand-rolled done channel; joined stops the
	// signal wait once Join has already returned.
	var g errgroup.Group
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	joined := make(chan struct{})

	g.Go(func() error {
		select {
		case <-sigCh:
			logger.Infof("httprangefs: signal received, unmounting %s", p.mountPoint)
			if err := fsmount.Unmount(p.mountPoint); err != nil {
				logger.Warnf("httprangefs: unmount %s: %v", p.mountPoint, err)
			}
		case <-joined:
		}
		return nil
	})
	g.Go(func() error {
		defer signal.Stop(sigCh)
		defer close(joined)
		if err := mfs.Join(context.Background()); err != nil {
			return fmt.Errorf("waiting for unmount: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Infof("httprangefs: unmounted %s cleanly", p.mountPoint)
	return nil
}
