// Package dev runs the development static server.
//
// A Server owns two listeners: the static listener, which routes every
// request through favicon handling, template short-circuits and rewrite rules
// before serving files from the project root, and the live-reload listener,
// which speaks the LiveReload protocol to browsers. A polling Watcher turns
// changes under the served tree into asset events that reload every
// connected browser.
//
// # Usage
//
//	srv, err := dev.NewServer(dev.ServerOptions{Config: cfg})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx, nil)
//
// # Steps
//
// RunTasks runs a sequence of steps. The "static" step starts the server and
// continues once it is listening; every other step is a shell command. When
// "static" is the only step the server runs in standalone mode and serves
// until the context is cancelled.
//
// # Bind errors
//
// A static port that is already taken fails with E150 and the live-reload
// listener is never started. Any other listen failure is E151.
package dev
