/*
Package monitoring provides Prometheus metrics for the membrane server.

# Overview

Metrics covers HTTP traffic, membrane activity (wrappers created by side,
revocations, wrappers severed, isolation breaches), scenario runs by
verdict, foreign realm collections by kind, and stream connections. It
implements membrane.Observer and scenario.Observer, so membranes and the
runner report into it directly.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	runner, _ := scenario.NewRunner(catalog, cfg, scenario.WithObserver(metrics))
*/
package monitoring
