// Package pipeline runs a single raw video through download, transcode,
// upload and local cleanup.
//
// A job owns two local files, the downloaded raw video and the transcoder
// output. Both are removed before Process returns, whatever the outcome.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ai-teammate/video-processing-service/internal/staging"
)

// Stage is a step of the job state machine.
type Stage string

const (
	StageReceived    Stage = "received"
	StageDownloading Stage = "downloading"
	StageTranscoding Stage = "transcoding"
	StageUploading   Stage = "uploading"
	StageCleaningUp  Stage = "cleaning_up"
	StageCompleted   Stage = "completed"
)

// FileDownloader downloads an object to disk.
type FileDownloader interface {
	Download(ctx context.Context, bucket, objectPath, destPath string) error
}

// FileUploader uploads a local file.
type FileUploader interface {
	UploadFile(ctx context.Context, bucket, objectPath, srcPath string) error
}

// Publisher makes an uploaded object publicly readable.
type Publisher interface {
	MakePublic(ctx context.Context, bucket, object string) error
}

// Transcoder rescales a video file to the given height.
type Transcoder interface {
	Scale(ctx context.Context, inputPath, outputPath string, height int) error
}

// Observer is notified of stage timings and job outcomes.
type Observer interface {
	StageFinished(stage Stage, elapsed time.Duration, err error)
	JobFinished(stage Stage, err error)
}

// Config holds the settings shared by every job.
type Config struct {
	RawBucket       string
	ProcessedBucket string
	Dirs            staging.Dirs
	// TargetHeight is the output height in pixels.
	TargetHeight int
	// Zero disables the per-stage timeout.
	DownloadTimeout  time.Duration
	TranscodeTimeout time.Duration
	UploadTimeout    time.Duration
	// ScopedPaths prefixes local file names with the job ID.
	ScopedPaths bool
}

// Deps are the collaborators a Processor calls.
type Deps struct {
	Downloader FileDownloader
	Uploader   FileUploader
	Publisher  Publisher
	Transcoder Transcoder
	// Observer may be nil.
	Observer Observer
}

// Job is one pipeline execution. It is never persisted or retried.
type Job struct {
	ID string
	staging.Paths
}

// Result describes a finished job. Stage is StageCompleted on success and the
// failing stage otherwise.
type Result struct {
	Job        Job
	Stage      Stage
	CleanupErr error
}

// Processor executes jobs. It holds no per-job state and is safe for
// concurrent use.
type Processor struct {
	cfg   Config
	dl    FileDownloader
	ul    FileUploader
	pub   Publisher
	tr    Transcoder
	obs   Observer
	log   *zap.Logger
	newID func() string
}

// New constructs a Processor.
func New(cfg Config, deps Deps, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	obs := deps.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Processor{
		cfg:   cfg,
		dl:    deps.Downloader,
		ul:    deps.Uploader,
		pub:   deps.Publisher,
		tr:    deps.Transcoder,
		obs:   obs,
		log:   logger,
		newID: uuid.NewString,
	}
}

// NewJob derives the names and local paths for source.
func (p *Processor) NewJob(source string) Job {
	id := p.newID()
	token := ""
	if p.cfg.ScopedPaths {
		token = id
	}
	return Job{ID: id, Paths: p.cfg.Dirs.PathsFor(source, token)}
}

// Process runs the job for source. Local files are cleaned up on every exit;
// a cleanup failure is logged and reported in Result.CleanupErr but never
// changes the returned error.
func (p *Processor) Process(ctx context.Context, source string) (Result, error) {
	job := p.NewJob(source)
	log := p.log.With(
		zap.String("job_id", job.ID),
		zap.String("source", job.Source),
		zap.String("target", job.Target),
	)
	log.Info("job received", zap.String("stage", string(StageReceived)))
	start := time.Now()

	stage, err := p.run(ctx, job, log)
	res := Result{Job: job, Stage: stage}

	cleanupStart := time.Now()
	if cerr := staging.Cleanup(log, job.Raw, job.Processed); cerr != nil {
		res.CleanupErr = fmt.Errorf("%w: %w", ErrCleanupFailed, cerr)
		log.Warn("cleanup failed", zap.String("stage", string(StageCleaningUp)), zap.Error(cerr))
	}
	p.obs.StageFinished(StageCleaningUp, time.Since(cleanupStart), res.CleanupErr)

	if err != nil {
		log.Error("job failed",
			zap.String("stage", string(stage)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		p.obs.JobFinished(stage, err)
		return res, err
	}

	res.Stage = StageCompleted
	log.Info("job completed",
		zap.String("stage", string(StageCompleted)),
		zap.Duration("elapsed", time.Since(start)),
	)
	p.obs.JobFinished(StageCompleted, nil)
	return res, nil
}

// run executes download, transcode and upload in order and returns the last
// stage entered.
func (p *Processor) run(ctx context.Context, job Job, log *zap.Logger) (Stage, error) {
	err := p.step(ctx, StageDownloading, p.cfg.DownloadTimeout, log, func(ctx context.Context) error {
		log.Info("downloading", zap.String("bucket", p.cfg.RawBucket), zap.String("path", job.Raw))
		if err := p.dl.Download(ctx, p.cfg.RawBucket, job.Source, job.Raw); err != nil {
			return fail(StageDownloading, ErrDownloadFailed, err)
		}
		return nil
	})
	if err != nil {
		return StageDownloading, err
	}

	err = p.step(ctx, StageTranscoding, p.cfg.TranscodeTimeout, log, func(ctx context.Context) error {
		log.Info("transcoding", zap.String("path", job.Processed), zap.Int("height", p.cfg.TargetHeight))
		if err := p.tr.Scale(ctx, job.Raw, job.Processed, p.cfg.TargetHeight); err != nil {
			return fail(StageTranscoding, ErrTranscodeFailed, err)
		}
		return nil
	})
	if err != nil {
		return StageTranscoding, err
	}

	err = p.step(ctx, StageUploading, p.cfg.UploadTimeout, log, func(ctx context.Context) error {
		log.Info("uploading", zap.String("bucket", p.cfg.ProcessedBucket))
		if err := p.ul.UploadFile(ctx, p.cfg.ProcessedBucket, job.Target, job.Processed); err != nil {
			return fail(StageUploading, ErrUploadFailed, err)
		}
		if err := p.pub.MakePublic(ctx, p.cfg.ProcessedBucket, job.Target); err != nil {
			return fail(StageUploading, ErrPublishFailed, err)
		}
		return nil
	})
	if err != nil {
		return StageUploading, err
	}
	return StageCleaningUp, nil
}

// step runs fn under the optional stage timeout and reports its duration.
func (p *Processor) step(ctx context.Context, stage Stage, timeout time.Duration, log *zap.Logger, fn func(context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	p.obs.StageFinished(stage, elapsed, err)
	if err == nil {
		log.Debug("stage finished", zap.String("stage", string(stage)), zap.Duration("elapsed", elapsed))
	}
	return err
}

type nopObserver struct{}

func (nopObserver) StageFinished(Stage, time.Duration, error) {}
func (nopObserver) JobFinished(Stage, error)                  {}
