// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package tank

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	pendingFiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gotracebuf_tank_pending_files",
		Help: "Count of files appended to the stream since the last rotation.",
	})

	duplicateFiles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotracebuf_tank_duplicate_files",
		Help: "Count of files skipped because they were already converted.",
	})

	rotations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotracebuf_tank_rotations",
		Help: "Count of tank files produced.",
	})

	rotationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gotracebuf_tank_rotation_errors",
		Help: "Count of rotation errors encountered.",
	}, []string{"type"})

	archivedFiles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotracebuf_tank_archived_files",
		Help: "Count of tank files uploaded to an archive.",
	})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		pendingFiles,
		duplicateFiles,
		rotations,
		rotationErrors,
		archivedFiles,
	)
}
