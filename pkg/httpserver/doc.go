// Package httpserver runs the notifyd HTTP surface with graceful shutdown.
//
//	srv, err := httpserver.New(cfg, router, httpserver.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	g.Go(func() error { return srv.Run(ctx) })
//
// Run serves until ctx is done, then shuts down within
// Config.ShutdownTimeout. Signal handling belongs to the caller.
//
// Liveness and Readiness build probe handlers; Readiness runs every named
// check and reports each result as JSON.
package httpserver
