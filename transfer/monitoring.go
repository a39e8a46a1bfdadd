// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package transfer

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	connections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotracebuf_transfer_connections",
		Help: "Count of connections accepted by the server.",
	})

	filesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotracebuf_transfer_received_files",
		Help: "Count of files received by the server.",
	})

	bytesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotracebuf_transfer_received_bytes",
		Help: "Count of file bytes received by the server.",
	})

	serverErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gotracebuf_transfer_server_errors",
		Help: "Count of server transfer errors encountered.",
	}, []string{"type"})

	filesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotracebuf_transfer_sent_files",
		Help: "Count of files sent by the client.",
	})

	bytesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotracebuf_transfer_sent_bytes",
		Help: "Count of file bytes sent by the client.",
	})

	clientErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gotracebuf_transfer_client_errors",
		Help: "Count of client transfer errors encountered.",
	})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		// Server
		connections,
		filesReceived,
		bytesReceived,
		serverErrors,

		// Client
		filesSent,
		bytesSent,
		clientErrors,
	)
}
