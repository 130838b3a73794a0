package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/viant/jobrunner/model/job"
	"github.com/viant/jobrunner/service/event"
	"github.com/viant/jobrunner/service/scheduler"
)

func runCmd() *cobra.Command {
	flags := &requestFlags{}
	cmd := &cobra.Command{
		Use:          "run [spec]",
		Short:        "submit a job and stream its output until it settles",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRun(cmd, flags, firstArg(args))
		},
	}
	flags.register(cmd)
	return cmd
}

func doRun(cmd *cobra.Command, flags *requestFlags, specID string) error {
	srv, err := newRunner(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer func() { _ = srv.Shutdown(context.WithoutCancel(ctx)) }()

	request, err := flags.build(ctx, srv, specID)
	if err != nil {
		return err
	}
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	listeners := &event.Listeners{
		OnStatusChange: func(jobID string, timestamp job.Timestamp) {
			slog.Info("job status", "job_id", jobID, "status", timestamp.Status, "message", timestamp.Message)
		},
		OnStdout: func(_ string, chunk []byte) { _, _ = stdout.Write(chunk) },
		OnStderr: func(_ string, chunk []byte) { _, _ = stderr.Write(chunk) },
	}
	id, result, err := srv.Submit(ctx, request, flags.credential, scheduler.WithJobListeners(listeners))
	if err != nil {
		return err
	}

	interrupted, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		select {
		case <-interrupted.Done():
			srv.TryAbort(context.WithoutCancel(ctx), id)
		case <-result.Done():
		}
	}()

	finalized, err := result.Wait(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	switch finalized.Status() {
	case job.StatusFinished:
		if finalized.ExitCode != nil && *finalized.ExitCode != 0 {
			return &exitError{code: *finalized.ExitCode}
		}
		return nil
	case job.StatusAborted:
		return fmt.Errorf("job %s aborted: %s", id, lastMessage(finalized.Record))
	default:
		return fmt.Errorf("job %s failed: %s", id, lastMessage(finalized.Record))
	}
}

func lastMessage(record *job.Record) string {
	if n := len(record.Timestamps); n > 0 {
		return record.Timestamps[n-1].Message
	}
	return ""
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
