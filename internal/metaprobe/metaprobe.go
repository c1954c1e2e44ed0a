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

// Package metaprobe performs the one-shot HEAD request that learns a
// resource's total size at mount time, per spec.md §4.4. ~5% of core per
// spec.md §2. Grounded on the same fasthttp request construction used in
// internal/rangereader.Reader.fetchingLoop, minus the streaming body.
package metaprobe

import (
	"fmt"

	"github.com/googlecloudplatform/httprangefs/internal/rangereader"
	"github.com/valyala/fasthttp"
)

// Probe issues a HEAD request to url with the given headers applied
// verbatim and returns the resource's advertised byte length from
// Content-Length. Failure here is fatal at mount time per spec.md §4.4
// and §7 — the caller is expected to abort startup on a non-nil error.
func Probe(url string, headers []rangereader.Header, client *fasthttp.Client) (int64, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod("HEAD")
	for _, h := range headers {
		req.Header.Set(h.Name, h.Value)
	}

	if err := client.Do(req, resp); err != nil {
		return 0, fmt.Errorf("metaprobe: HEAD %s: %w", url, err)
	}

	status := resp.StatusCode()
	if status != fasthttp.StatusOK && status != fasthttp.StatusPartialContent {
		return 0, fmt.Errorf("metaprobe: HEAD %s: unexpected status %d", url, status)
	}

	size := resp.Header.ContentLength()
	if size < 0 {
		return 0, fmt.Errorf("metaprobe: HEAD %s: missing Content-Length", url)
	}
	return int64(size), nil
}
