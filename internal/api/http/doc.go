/*
Package http exposes the scenario runner over a JSON API.

Routes:

	GET  /                     service info
	GET  /health               liveness
	GET  /scenarios            catalog listing
	POST /scenarios            add or replace a scenario
	GET  /scenarios/:id        one scenario
	POST /runs                 execute a scenario
	GET  /runs                 retained runs
	GET  /runs/:id             one run
	GET  /runs/:id/console     captured console output
	POST /runs/:id/revoke      revoke the run's membrane
	POST /runs/:id/detach      drop the foreign realm
	POST /runs/detach          detach every run
	POST /gc                   force a collection cycle
	GET  /metrics              Prometheus exposition
	GET  /metrics/json         metrics snapshot
*/
package http
