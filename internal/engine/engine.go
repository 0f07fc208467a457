// Package engine downloads one remote resource as a set of byte ranges
// fetched concurrently into temp files, then merges the temp files in index
// order into the output file.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tanq16/rawst/internal/history"
	"github.com/tanq16/rawst/internal/utils"
)

type Options struct {
	Resolve SourceResolver
	History history.Store // optional
	Retry   RetryPolicy
}

type Engine struct {
	opts Options

	mu      sync.Mutex
	claimed map[string]struct{} // output paths of prepared, unfinished jobs
}

type Result struct {
	JobID      string
	OutputPath string
	Bytes      int64
	Chunks     int
	Reused     int
	Duration   time.Duration
}

// Task is a planned job. Progress may be read while Run is in flight.
type Task struct {
	Job      *DownloadJob
	Ranges   []ChunkRange
	Progress *Tracker

	src    Source
	engine *Engine
}

func New(opts Options) *Engine {
	return &Engine{opts: opts, claimed: make(map[string]struct{})}
}

// Download plans and runs job.
func (e *Engine) Download(ctx context.Context, job *DownloadJob) (*Result, error) {
	task, err := e.Prepare(ctx, job)
	if err != nil {
		return nil, err
	}
	return task.Run(ctx)
}

// Prepare learns the remote size, fills in the job's derived fields and
// plans its ranges. No chunk data is transferred.
func (e *Engine) Prepare(ctx context.Context, job *DownloadJob) (*Task, error) {
	if err := ValidateThreads(job.Threads); err != nil {
		return nil, err
	}
	if e.opts.Resolve == nil {
		return nil, &PlanningError{Err: errors.New("no source resolver configured")}
	}
	src, err := e.opts.Resolve(job.URL)
	if err != nil {
		return nil, &PlanningError{Err: err}
	}
	info, err := src.Stat(ctx)
	if err != nil {
		return nil, &PlanningError{Err: fmt.Errorf("error getting file info: %w", err)}
	}
	if info.Size < 0 {
		return nil, &PlanningError{Err: ErrUnknownLength}
	}
	if job.TotalSize > 0 && job.Resume && job.TotalSize != info.Size {
		return nil, &PlanningError{Err: fmt.Errorf("remote size changed from %d to %d bytes", job.TotalSize, info.Size)}
	}
	job.TotalSize = info.Size
	if !info.AcceptsRanges && job.Threads > 1 {
		log.Warn().Str("op", "engine/prepare").Msgf("%s does not advertise range support, using a single connection", job.URL)
		job.Threads = 1
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.OutputFilename == "" {
		job.OutputFilename = info.Filename
	}
	if job.OutputFilename == "" {
		job.OutputFilename = utils.FilenameFromURL(job.URL)
	}
	if job.OutputDir == "" {
		job.OutputDir = "."
	}
	if job.TempDir == "" {
		job.TempDir = filepath.Join(job.OutputDir, ".rawst-temp")
	}
	// Fresh jobs get their own chunk directory; resumed jobs keep the one
	// recorded in history.
	if !job.Resume {
		job.TempDir = filepath.Join(job.TempDir, job.ID)
	}
	if err := os.MkdirAll(job.TempDir, 0755); err != nil {
		return nil, &PlanningError{Err: fmt.Errorf("error creating temp directory: %w", err)}
	}
	if err := e.claimOutput(job); err != nil {
		return nil, &PlanningError{Err: err}
	}

	ranges := Plan(job.TotalSize, job.Threads)
	log.Debug().Str("op", "engine/prepare").Msgf("Planned %d chunks for %s (%d bytes)", len(ranges), job.OutputFilename, job.TotalSize)
	return &Task{
		Job:      job,
		Ranges:   ranges,
		Progress: NewTracker(job.TotalSize),
		src:      src,
		engine:   e,
	}, nil
}

// Run fetches every range and merges the result. Merge only happens when
// every chunk succeeded; otherwise the first chunk error is returned and the
// temp files are left for a later resume.
func (t *Task) Run(ctx context.Context) (*Result, error) {
	job := t.Job
	defer t.engine.releaseOutput(job.OutputPath())
	startTime := time.Now()
	t.engine.record(ctx, job, history.StatusPending, nil)

	tempFiles := make([]string, len(t.Ranges))
	reused := 0
	group := new(errgroup.Group)
	group.SetLimit(job.Threads)
	for i, r := range t.Ranges {
		tempPath := job.TempPath(r.Index)
		if job.Resume && chunkComplete(tempPath, r) {
			tempFiles[i] = tempPath
			t.Progress.Add(r.Len())
			reused++
			log.Debug().Str("op", "engine/run").Msgf("Reusing complete chunk %d of %s", r.Index, job.OutputFilename)
			continue
		}
		group.Go(func() error {
			path, err := fetchWithRetry(ctx, t.src, job, r, t.Progress, t.engine.opts.Retry)
			if err != nil {
				log.Error().Str("op", "engine/run").Err(err).Msgf("Chunk %d of %s failed", r.Index, job.OutputFilename)
				return err
			}
			tempFiles[i] = path
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		t.engine.record(ctx, job, history.StatusFailed, err)
		return nil, err
	}

	if err := Merge(job, t.Ranges, tempFiles); err != nil {
		log.Error().Str("op", "engine/merge").Err(err).Msgf("Merge failed for %s, partial output left at %s", job.OutputFilename, job.OutputPath())
		t.engine.record(ctx, job, history.StatusFailed, err)
		return nil, err
	}

	if filepath.Base(job.TempDir) == job.ID {
		os.Remove(job.TempDir)
	}
	t.engine.record(ctx, job, history.StatusCompleted, nil)
	log.Info().Str("op", "engine/run").Msgf("Downloaded %s (%s)", job.OutputPath(), utils.FormatBytes(uint64(job.TotalSize)))
	return &Result{
		JobID:      job.ID,
		OutputPath: job.OutputPath(),
		Bytes:      t.Progress.Current(),
		Chunks:     len(t.Ranges),
		Reused:     reused,
		Duration:   time.Since(startTime),
	}, nil
}

// claimOutput reserves the job's output path against other jobs prepared on
// this engine. A fresh job whose path exists on disk or is held by another
// job is given the next free numbered name. A resumed job must get its
// recorded path.
func (e *Engine) claimOutput(job *DownloadJob) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	path := job.OutputPath()
	if job.Resume {
		if _, held := e.claimed[path]; held {
			return fmt.Errorf("%w: %s", ErrOutputInUse, path)
		}
	} else {
		for index := 1; e.taken(path); index++ {
			path = utils.NumberedPath(job.OutputPath(), index)
		}
		job.OutputFilename = filepath.Base(path)
	}
	e.claimed[path] = struct{}{}
	return nil
}

func (e *Engine) taken(path string) bool {
	if _, held := e.claimed[path]; held {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}

func (e *Engine) releaseOutput(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.claimed, path)
}

// record appends a history entry. History is best effort and never fails a
// download.
func (e *Engine) record(ctx context.Context, job *DownloadJob, status history.Status, jobErr error) {
	if e.opts.History == nil {
		return
	}
	entry := EntryFromJob(job, status)
	if jobErr != nil {
		entry.Error = jobErr.Error()
	}
	if err := e.opts.History.Append(context.WithoutCancel(ctx), entry); err != nil {
		log.Warn().Str("op", "engine/history").Err(err).Msgf("Could not record %s as %s", job.ID, status)
	}
}

func EntryFromJob(job *DownloadJob, status history.Status) history.Entry {
	return history.Entry{
		ID:        job.ID,
		URL:       job.URL,
		Filename:  job.OutputFilename,
		OutputDir: job.OutputDir,
		TempDir:   job.TempDir,
		Threads:   job.Threads,
		TotalSize: job.TotalSize,
		Status:    status,
		Timestamp: time.Now(),
	}
}

// JobFromEntry rebuilds a resumable job from its history record.
func JobFromEntry(entry history.Entry) *DownloadJob {
	return &DownloadJob{
		ID:             entry.ID,
		URL:            entry.URL,
		OutputFilename: entry.Filename,
		OutputDir:      entry.OutputDir,
		TempDir:        entry.TempDir,
		Threads:        entry.Threads,
		TotalSize:      entry.TotalSize,
		Resume:         true,
	}
}
