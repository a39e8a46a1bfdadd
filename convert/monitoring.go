// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package convert

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	filesConverted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotracebuf_convert_files",
		Help: "Count of SAC files converted.",
	})

	filesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotracebuf_convert_skipped_files",
		Help: "Count of SAC files skipped due to an invalid sample rate.",
	})

	filesFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gotracebuf_convert_failed_files",
		Help: "Count of SAC files that could not be converted.",
	}, []string{"type"})

	packetsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotracebuf_convert_packets",
		Help: "Count of tracebuf packets written.",
	})

	samplesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotracebuf_convert_samples",
		Help: "Count of samples written.",
	})

	bytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotracebuf_convert_bytes",
		Help: "Count of bytes appended to tracebuf streams.",
	})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		filesConverted,
		filesSkipped,
		filesFailed,
		packetsWritten,
		samplesWritten,
		bytesWritten,
	)
}
