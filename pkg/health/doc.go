// Package health provides liveness and readiness probe endpoints for worker
// processes.
//
// [LivenessHandler] always reports OK while the process runs.
// [ReadinessHandler] executes a set of named [Checks] in parallel and reports
// aggregate readiness; any failing check flips the response to 503.
//
// Checks use the func(context.Context) error closures returned by the db and
// queue packages:
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/health/live", health.LivenessHandler())
//	mux.HandleFunc("/health/ready", health.ReadinessHandler(health.Checks{
//	    "postgres": db.Healthcheck(pool),
//	    "queue":    queue.Healthcheck(manager),
//	}, health.WithLogger(log)))
//
// Responses are plain text ("OK" / "Service Unavailable") for probe
// compatibility; clients sending Accept: application/json or ?format=json get
// per-check detail.
package health
