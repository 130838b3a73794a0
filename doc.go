// Package jobrunner runs published command templates ("specs") as local
// processes on behalf of callers.
//
// A caller submits a job request naming a spec and supplying input values.
// The request is validated against the spec's expected inputs, turned into
// a job and queued; at most scheduler.maxRunning jobs run at a time. Each job
// runs in its own working directory holding the request, the spec, captured
// stdout and stderr, and the collected output files.
//
//	srv, _ := jobrunner.New(jobrunner.WithSpecs(aSpec))
//	id, result, _ := srv.Submit(ctx, &job.Request{Spec: "echo", Inputs: inputs}, "")
//	finalized, _ := result.Wait(ctx)
//
// Services are plain instances; several may coexist in one process.
package jobrunner
