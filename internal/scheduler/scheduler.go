package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/rawst/internal/engine"
	"github.com/tanq16/rawst/internal/output"
	"github.com/tanq16/rawst/internal/utils"
)

var ErrJobsFailed = errors.New("one or more downloads failed")

type Options struct {
	Workers int
	Out     io.Writer
}

// Run downloads jobs with a pool of workers. Each job gets one line in the
// output manager. Every job is attempted; ErrJobsFailed is returned when any
// of them failed.
func Run(ctx context.Context, eng *engine.Engine, jobs []*engine.DownloadJob, opts Options) error {
	numWorkers := max(1, min(opts.Workers, len(jobs)))
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	outputMgr := output.NewManager(opts.Out)
	outputMgr.StartDisplay()

	jobCh := make(chan *engine.DownloadJob, len(jobs))
	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			processJobs(ctx, eng, jobCh, outputMgr)
		}()
	}
	wg.Wait()
	outputMgr.StopDisplay()

	if _, failures := outputMgr.Counts(); failures > 0 {
		return fmt.Errorf("%w: %d of %d", ErrJobsFailed, failures, len(jobs))
	}
	return nil
}

func processJobs(ctx context.Context, eng *engine.Engine, jobCh <-chan *engine.DownloadJob, outputMgr *output.Manager) {
	for job := range jobCh {
		jobID := outputMgr.Register(job.URL)
		if ctx.Err() != nil {
			outputMgr.ReportError(jobID, ctx.Err())
			continue
		}
		outputMgr.SetMessage(jobID, fmt.Sprintf("Planning %s", job.URL))
		requested := job.Threads
		task, err := eng.Prepare(ctx, job)
		if err != nil {
			log.Debug().Str("op", "scheduler").Err(err).Msgf("Planning failed for %s", job.URL)
			outputMgr.ReportError(jobID, err)
			continue
		}
		outputMgr.AttachProgress(jobID, task.Progress)
		if job.Threads < requested {
			outputMgr.SetStatus(jobID, output.StatusWarning)
			outputMgr.SetMessage(jobID, fmt.Sprintf("Downloading %s over a single connection (no range support)", job.OutputFilename))
		} else {
			outputMgr.SetMessage(jobID, fmt.Sprintf("Downloading %s (%d chunks)", job.OutputFilename, len(task.Ranges)))
		}
		result, err := task.Run(ctx)
		if err != nil {
			outputMgr.ReportError(jobID, err)
			continue
		}
		msg := fmt.Sprintf("Completed %s (%s in %s)", result.OutputPath, utils.FormatBytes(uint64(result.Bytes)), result.Duration.Round(100*time.Millisecond))
		if result.Reused > 0 {
			msg += fmt.Sprintf(", reused %d chunks", result.Reused)
		}
		outputMgr.Complete(jobID, msg)
	}
}
