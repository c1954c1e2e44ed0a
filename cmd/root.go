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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/googlecloudplatform/httprangefs/internal/logger"
	"github.com/googlecloudplatform/httprangefs/internal/rangereader"
	"github.com/spf13/cobra"
)

// Flag values, bound in init() below. Reference values per SPEC_FULL.md §2.3.
var (
	autoUnmount    bool
	allowRoot      bool
	additionalHdrs []string

	maxReaders      int
	maxBufferBytes  int64
	bufferRecheckMs int
	responseTimeoMs int
	fileName        string
	logFormat       string
	logSeverity     string
)

const (
	defaultBufferRecheckMs = 10
	defaultResponseTimeoMs = 10000
	defaultFileName        = "file"
)

var rootCmd = &cobra.Command{
	Use:   "httprangefs [flags] <mount_point> <url>",
	Short: "Mount a remote HTTP-addressable byte resource as a local read-only file",
	Long: `httprangefs is a FUSE adapter that exposes a remote HTTP resource
reachable via byte-range GET requests as a single local read-only file, so
ordinary file-read calls can stream arbitrary ranges of it without
downloading it in full.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.SetFormat(logFormat)
		// An explicit --log-severity overrides $HTTPRANGEFS_LOG_SEVERITY,
		// which internal/logger has already applied at startup.
		if cmd.Flags().Changed("log-severity") {
			logger.SetSeverity(logSeverity)
		}

		mountPoint, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving mount point: %w", err)
		}
		url := args[1]

		headers := make([]rangereader.Header, 0, len(additionalHdrs))
		for _, line := range additionalHdrs {
			h, err := parseHeaderLine(line)
			if err != nil {
				return err
			}
			headers = append(headers, h)
		}

		return runMount(mountParams{
			mountPoint:  mountPoint,
			url:         url,
			headers:     headers,
			autoUnmount: autoUnmount,
			allowRoot:   allowRoot,
			fileName:    fileName,
			maxReaders:  maxReaders,
			readerCfg: rangereader.Config{
				MaxBufferSize:        maxBufferBytes,
				BufferFillRecheck:    time.Duration(bufferRecheckMs) * time.Millisecond,
				ResponseAwaitTimeout: time.Duration(responseTimeoMs) * time.Millisecond,
			},
		})
	},
}

// parseHeaderLine splits "Name: value" the way spec.md §6's
// --additional_header expects, forwarding the line verbatim to outbound
// requests including the HEAD probe.
func parseHeaderLine(line string) (rangereader.Header, error) {
	idx := -1
	for i, c := range line {
		if c == ':' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return rangereader.Header{}, fmt.Errorf("--additional_header %q: expected \"Name: value\"", line)
	}
	name := line[:idx]
	value := line[idx+1:]
	for len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return rangereader.Header{Name: name, Value: value}, nil
}

// Execute runs the root command; the process exits non-zero on mount
// failure or fatal metadata-probe failure, per spec.md §6.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&autoUnmount, "auto_unmount", false, "request the kernel to unmount on process exit")
	rootCmd.Flags().BoolVar(&allowRoot, "allow_root", false, "permit root access to the filesystem")
	rootCmd.Flags().StringArrayVar(&additionalHdrs, "additional_header", nil, "extra HTTP header line (\"Name: value\"), repeatable; applied to every outbound request including the HEAD probe")

	rootCmd.Flags().IntVar(&maxReaders, "max-readers", 5, "maximum number of concurrent RangeReaders kept alive in the pool")
	rootCmd.Flags().Int64Var(&maxBufferBytes, "max-buffer-bytes", rangereader.DefaultMaxBufferSize, "per-reader sliding buffer ceiling in bytes")
	rootCmd.Flags().IntVar(&bufferRecheckMs, "buffer-recheck-ms", defaultBufferRecheckMs, "backpressure / wait-for-fill poll interval in milliseconds")
	rootCmd.Flags().IntVar(&responseTimeoMs, "response-timeout-ms", defaultResponseTimeoMs, "maximum time to wait for a reader to fill a request before returning a short read")
	rootCmd.Flags().StringVar(&fileName, "file-name", defaultFileName, "name of the single file presented at the mount point")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "text", "log output format: text or json")
	rootCmd.Flags().StringVar(&logSeverity, "log-severity", "INFO", "minimum log severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF")
}
