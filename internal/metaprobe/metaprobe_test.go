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

package metaprobe_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/googlecloudplatform/httprangefs/internal/metaprobe"
	"github.com/googlecloudplatform/httprangefs/internal/rangereader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/valyala/fasthttp"
)

type MetaProbeTest struct {
	suite.Suite
}

func TestMetaProbeSuite(t *testing.T) { suite.Run(t, new(MetaProbeTest)) }

func (t *MetaProbeTest) TestProbeReturnsContentLength() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t.T(), http.MethodHead, r.Method)
		assert.Equal(t.T(), "line", r.Header.Get("X-Extra"))
		w.Header().Set("Content-Length", "12345")
	}))
	defer srv.Close()

	size, err := metaprobe.Probe(srv.URL, []rangereader.Header{{Name: "X-Extra", Value: "line"}}, &fasthttp.Client{})

	require.NoError(t.T(), err)
	assert.Equal(t.T(), int64(12345), size)
}

func (t *MetaProbeTest) TestProbeFailsOnErrorStatus() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := metaprobe.Probe(srv.URL, nil, &fasthttp.Client{})

	assert.Error(t.T(), err)
}

func (t *MetaProbeTest) TestProbeFailsOnMissingContentLength() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Del("Content-Length")
		w.(http.Flusher).Flush()
	}))
	defer srv.Close()

	_, err := metaprobe.Probe(srv.URL, nil, &fasthttp.Client{})

	assert.Error(t.T(), err)
}
