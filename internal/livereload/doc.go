// Package livereload notifies connected browsers when assets change.
//
// The Hub owns the registry of connected clients. Clients join and leave
// through the WebSocket transport served by Handler; the hub itself never
// closes a connection.
//
// # Protocol
//
// The transport speaks the LiveReload protocol (version 7) so the standard
// browser extensions and livereload.js work unchanged. After connecting, a
// client sends hello and the server answers with its own hello:
//
//	{"command":"hello","protocols":["http://livereload.com/protocols/official-7"],"serverName":"devstatic"}
//
// Change notifications are reload commands whose path is "<type>:<name>" for
// asset compiled events, or the file name for /changed requests:
//
//	{"command":"reload","path":"css:styles/app.css"}
//
// A client may send a custom command; it is relayed to every other client
// but not echoed back to the sender.
//
// # HTTP endpoints
//
//	GET  /                welcome banner
//	GET  /livereload      WebSocket upgrade
//	GET  /livereload.js   browser client
//	GET  /changed?files=  reload the listed files
//	POST /changed         same, with {"files":[...]} body
package livereload
