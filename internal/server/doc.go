// Package server serves the "Atendimento - DP" feedback form over HTTP.
//
// # Routes
//
//	GET  /          form page
//	POST /          classic form submission, re-renders with the outcome
//	GET  /ws        live form session (WebSocket)
//	GET  /static/*  page script and stylesheet
//	GET  /healthz   liveness probe, answers "ok"
//	GET  /metrics   Prometheus metrics
//
// Every form instance (one POST, or one WebSocket session) owns its own
// form.Manager. All instances share the same sender, normally a
// *sharepoint.Client.
//
// # WebSocket Session
//
// The browser sends JSON messages:
//
//	{"type":"update","field":"nome","value":"Ana"}
//	{"type":"submit"}
//	{"type":"reset"}
//
// and the server pushes the form state after every change, including the
// submitting transition:
//
//	{"type":"state","record":{...},"state":"submitting","busy":true,"submitted":false}
//
// A rejected message (bad JSON, unknown field) is answered with
// {"type":"error","message":"..."}. Submission failures arrive in the state
// message with the generic user-facing text; the detail is only logged.
//
// # Usage Example
//
//	client := sharepoint.NewClient(cfg.SharePoint)
//	srv, err := server.New(&server.Config{Addr: ":8080", Advertise: true}, client, metrics.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until SIGINT/SIGTERM
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM the server withdraws its mDNS advertisement, stops
// accepting connections and closes the open sessions. A submission already
// started keeps running until its HTTP calls return.
package server
