/*
Package ws streams runner events over WebSocket and accepts run commands.

Client messages are JSON objects with a type:

	{"type": "ping"}
	{"type": "run", "scenario": "revoke"}
	{"type": "revoke", "run_id": "run_..."}
	{"type": "detach", "run_id": "run_..."}
	{"type": "gc"}

The server answers each command and pushes every runner event as
{"type": "event", "event": {...}} while the connection is open.
*/
package ws
