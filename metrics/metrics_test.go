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

package metrics_test

import (
	"testing"

	"github.com/googlecloudplatform/httprangefs/metrics"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, mfs []*io_prometheus_client.MetricFamily, name string) float64 {
	for _, mf := range mfs {
		if mf.GetName() == name {
			require.Len(t, mf.Metric, 1)
			return mf.Metric[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric family %q not found", name)
	return 0
}

func TestCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ReaderHit()
	m.ReaderCreated()
	m.ReaderEvicted()
	m.BytesServed(128)
	m.ServeTimeout()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, float64(1), counterValue(t, mfs, "httprangefs_readerpool_reader_hits_total"))
	assert.Equal(t, float64(1), counterValue(t, mfs, "httprangefs_readerpool_readers_created_total"))
	assert.Equal(t, float64(1), counterValue(t, mfs, "httprangefs_readerpool_readers_evicted_total"))
	assert.Equal(t, float64(128), counterValue(t, mfs, "httprangefs_readerpool_bytes_served_total"))
	assert.Equal(t, float64(1), counterValue(t, mfs, "httprangefs_readerpool_serve_timeouts_total"))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.ReaderHit()
		m.ReaderCreated()
		m.ReaderEvicted()
		m.BytesServed(10)
		m.ServeTimeout()
	})
}
