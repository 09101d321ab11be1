package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipquiz/internal/events"
	"clipquiz/internal/journal"
	"clipquiz/internal/logging"
	"clipquiz/internal/notifications"
	"clipquiz/internal/quiz"
	"clipquiz/internal/services"
	"clipquiz/internal/workspace"
)

// AudioRetriever downloads the best audio stream for a URL into a file
// matching an output template and returns the produced path.
type AudioRetriever interface {
	Retrieve(ctx context.Context, sourceURL, outputTemplate string) (string, error)
}

// AudioTranscoder converts source audio into mono 16 kHz WAV at dest.
type AudioTranscoder interface {
	Transcode(ctx context.Context, source, dest string) error
}

// Transcriber turns a normalized WAV into plain transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// QuizGenerator produces raw quiz text from a transcript.
type QuizGenerator interface {
	Generate(ctx context.Context, transcript string) (string, error)
}

// Recorder persists job progress. *journal.Store satisfies it.
type Recorder interface {
	Begin(ctx context.Context, id, owner, sourceURL string) error
	Transition(ctx context.Context, id, state string) error
	Finish(ctx context.Context, id string, outcome journal.Outcome) error
}

// Timeouts bounds the whole job and each external stage. Zero disables a
// bound.
type Timeouts struct {
	Job        time.Duration
	Fetch      time.Duration
	Transcode  time.Duration
	Transcribe time.Duration
	Generate   time.Duration
}

// Dependencies wires a Pipeline. Workspaces and the four stage
// implementations are required; the rest default to no-ops.
type Dependencies struct {
	Workspaces  *workspace.Manager
	Retriever   AudioRetriever
	Transcoder  AudioTranscoder
	Transcriber Transcriber
	Generator   QuizGenerator

	Recorder  Recorder
	Publisher events.Publisher
	Notifier  notifications.Service
	Logger    *slog.Logger
	Timeouts  Timeouts
}

// Pipeline executes conversion jobs. It is safe for concurrent use; jobs for
// the same owner are serialized by the workspace manager.
type Pipeline struct {
	workspaces  *workspace.Manager
	retriever   AudioRetriever
	transcoder  AudioTranscoder
	transcriber Transcriber
	generator   QuizGenerator

	recorder  Recorder
	publisher events.Publisher
	notifier  notifications.Service
	logger    *slog.Logger
	timeouts  Timeouts

	newID func() string
	now   func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithIDGenerator overrides job ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// WithClock overrides the time source used for job timestamps.
func WithClock(fn func() time.Time) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.now = fn
		}
	}
}

const finalizeTimeout = 10 * time.Second

// New validates deps and constructs a Pipeline.
func New(deps Dependencies, opts ...Option) (*Pipeline, error) {
	switch {
	case deps.Workspaces == nil:
		return nil, errors.New("conversion: workspace manager required")
	case deps.Retriever == nil:
		return nil, errors.New("conversion: audio retriever required")
	case deps.Transcoder == nil:
		return nil, errors.New("conversion: audio transcoder required")
	case deps.Transcriber == nil:
		return nil, errors.New("conversion: transcriber required")
	case deps.Generator == nil:
		return nil, errors.New("conversion: quiz generator required")
	}
	p := &Pipeline{
		workspaces:  deps.Workspaces,
		retriever:   deps.Retriever,
		transcoder:  deps.Transcoder,
		transcriber: deps.Transcriber,
		generator:   deps.Generator,
		recorder:    deps.Recorder,
		publisher:   deps.Publisher,
		notifier:    deps.Notifier,
		logger:      logging.NewComponentLogger(deps.Logger, "conversion"),
		timeouts:    deps.Timeouts,
		newID:       uuid.NewString,
		now:         time.Now,
	}
	if p.publisher == nil {
		p.publisher = events.Noop{}
	}
	if p.notifier == nil {
		p.notifier = notifications.NewService(nil)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run converts the video at sourceURL into a validated quiz for ownerKey.
func (p *Pipeline) Run(ctx context.Context, sourceURL, ownerKey string) (*quiz.Document, error) {
	job, err := p.Execute(ctx, sourceURL, ownerKey)
	if err != nil {
		return nil, err
	}
	return job.Document, nil
}

// Execute runs one job and returns it alongside the primary error. The job
// is always non-nil so callers can report its ID and final state.
func (p *Pipeline) Execute(ctx context.Context, sourceURL, ownerKey string) (*Job, error) {
	job := newJob(p.newID(), strings.TrimSpace(sourceURL), strings.TrimSpace(ownerKey), p.now())

	if p.timeouts.Job > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeouts.Job)
		defer cancel()
	}
	ctx = services.WithOwner(services.WithJobID(ctx, job.ID), job.OwnerKey)
	logger := logging.WithContext(ctx, p.logger)

	logger.Info("conversion started",
		logging.String("source_url", job.SourceURL),
		logging.String(logging.FieldEventType, "conversion_start"),
	)
	p.record(ctx, logger, "begin", func(rctx context.Context) error {
		return p.recorder.Begin(rctx, job.ID, job.OwnerKey, job.SourceURL)
	})

	if job.SourceURL == "" {
		job.Err = p.fail(job, ErrInvalidRequest, services.Wrap(services.ErrValidation, string(StatePending), "validate", "source url is required", nil))
		p.finalize(ctx, logger, job)
		return job, job.Err
	}

	ws, err := p.workspaces.Acquire(ctx, job.OwnerKey, job.ID)
	if err != nil {
		kind, marker := ErrWorkspace, services.ErrExternalTool
		switch {
		case errors.Is(err, workspace.ErrInvalidOwner):
			kind, marker = ErrInvalidRequest, services.ErrValidation
		case ctx.Err() != nil:
			marker = contextMarker(ctx.Err())
		}
		job.Err = p.fail(job, kind, services.Wrap(marker, string(StatePending), "acquire workspace", "", err))
		p.finalize(ctx, logger, job)
		return job, job.Err
	}
	job.WorkspaceDir = ws.Dir

	defer func() {
		p.release(ctx, logger, job, ws)
		p.finalize(ctx, logger, job)
	}()

	if err := ws.Ensure(); err != nil {
		job.Err = p.fail(job, ErrWorkspace, services.Wrap(services.ErrExternalTool, string(StatePending), "ensure workspace", "", err))
		return job, job.Err
	}

	if err := p.runStages(ctx, job, ws); err != nil {
		job.Err = err
		return job, err
	}
	return job, nil
}

func (p *Pipeline) runStages(ctx context.Context, job *Job, ws *workspace.Workspace) error {
	err := p.stage(ctx, job, StateFetching, p.timeouts.Fetch, ErrFetch, services.ErrExternalTool, func(sctx context.Context) error {
		path, err := p.retriever.Retrieve(sctx, job.SourceURL, ws.OutputTemplate())
		if path != "" {
			ws.Track(path)
		}
		if err != nil {
			return err
		}
		job.DownloadedAudioPath = path
		return nil
	})
	if err != nil {
		return err
	}

	err = p.stage(ctx, job, StateTranscoding, p.timeouts.Transcode, ErrTranscode, services.ErrExternalTool, func(sctx context.Context) error {
		dest := ws.Path("audio_norm.wav")
		ws.Track(dest)
		if err := p.transcoder.Transcode(sctx, job.DownloadedAudioPath, dest); err != nil {
			return err
		}
		job.NormalizedAudioPath = dest
		return nil
	})
	if err != nil {
		return err
	}

	err = p.stage(ctx, job, StateTranscribing, p.timeouts.Transcribe, ErrTranscription, services.ErrExternalTool, func(sctx context.Context) error {
		text, err := p.transcriber.Transcribe(sctx, job.NormalizedAudioPath)
		if err != nil {
			return err
		}
		job.Transcript = text
		return nil
	})
	if err != nil {
		return err
	}

	err = p.stage(ctx, job, StateGenerating, p.timeouts.Generate, ErrGenerationService, services.ErrTransient, func(sctx context.Context) error {
		raw, err := p.generator.Generate(sctx, job.Transcript)
		if err != nil {
			return err
		}
		job.RawOutput = raw
		return nil
	})
	if err != nil {
		return err
	}

	err = p.stage(ctx, job, StateNormalizing, 0, ErrInvalidGeneratedContent, services.ErrValidation, func(context.Context) error {
		doc, err := quiz.Parse(job.RawOutput)
		if err != nil {
			return err
		}
		job.Document = doc
		return nil
	})
	if err != nil {
		return err
	}

	p.advance(ctx, job, StateDone)
	return nil
}

// stage advances the job into state, runs fn under the stage deadline, and
// converts any failure into an *Error of the given kind.
func (p *Pipeline) stage(ctx context.Context, job *Job, state State, timeout time.Duration, kind, marker error, fn func(context.Context) error) error {
	p.advance(ctx, job, state)

	stageCtx := services.WithStage(ctx, string(state))
	var cancel context.CancelFunc = func() {}
	if timeout > 0 {
		stageCtx, cancel = context.WithTimeout(stageCtx, timeout)
	}
	defer cancel()

	logger := logging.WithContext(stageCtx, p.logger)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	start := time.Now()

	err := fn(stageCtx)
	if err == nil {
		logger.Info("stage completed",
			logging.Duration("duration", time.Since(start)),
			logging.String(logging.FieldEventType, "stage_complete"),
		)
		return nil
	}

	if ctxErr := stageCtx.Err(); ctxErr != nil {
		marker = contextMarker(ctxErr)
		if !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
	}
	wrapped := p.fail(job, kind, services.Wrap(marker, string(state), "", "", err))
	logger.Error("stage failed",
		logging.Duration("duration", time.Since(start)),
		logging.String("error_kind", KindName(wrapped)),
		logging.String("error_message", services.Details(err).Message),
		logging.String(logging.FieldEventType, "stage_failure"),
	)
	return wrapped
}

func contextMarker(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.ErrTimeout
	}
	return services.ErrTransient
}

func (p *Pipeline) advance(ctx context.Context, job *Job, to State) {
	if err := job.advance(to); err != nil {
		p.logger.Error("state transition rejected", logging.Error(err), logging.String(logging.FieldJobID, job.ID))
		return
	}
	logger := logging.WithContext(ctx, p.logger)
	p.record(ctx, logger, "transition", func(rctx context.Context) error {
		return p.recorder.Transition(rctx, job.ID, string(to))
	})
}

// fail moves the job to failed and returns the typed error.
func (p *Pipeline) fail(job *Job, kind, cause error) error {
	stage := job.State
	if err := job.advance(StateFailed); err != nil {
		p.logger.Error("state transition rejected", logging.Error(err), logging.String(logging.FieldJobID, job.ID))
	}
	return &Error{Kind: kind, Stage: stage, JobID: job.ID, Err: cause}
}

func (p *Pipeline) release(ctx context.Context, logger *slog.Logger, job *Job, ws *workspace.Workspace) {
	var errs []error
	if job.Err != nil {
		if err := ws.TrackJobFiles(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := ws.Release(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		job.CleanupErr = &Error{Kind: ErrCleanup, Stage: job.State, JobID: job.ID, Err: err}
		logging.WarnWithContext(logger, "workspace cleanup failed", "cleanup_failure",
			logging.Error(job.CleanupErr),
			logging.String(logging.FieldErrorHint, "run clipquiz workspace clean"),
			logging.String(logging.FieldImpact, "transient audio left on disk; job result unaffected"),
		)
	}
	p.advance(ctx, job, StateCleanedUp)
}

// finalize records the outcome and fans it out. It runs on a context detached
// from cancellation so an expired job deadline still gets journaled.
func (p *Pipeline) finalize(ctx context.Context, logger *slog.Logger, job *Job) {
	job.FinishedAt = p.now()
	outcome := journal.Outcome{State: string(job.State)}
	if job.CleanupErr != nil {
		outcome.CleanupError = job.CleanupErr.Error()
	}

	event := events.Event{
		JobID:      job.ID,
		Owner:      job.OwnerKey,
		SourceURL:  job.SourceURL,
		StartedAt:  job.StartedAt.Unix(),
		FinishedAt: job.FinishedAt.Unix(),
		DurationMS: job.Duration().Milliseconds(),
	}
	if job.CleanupErr != nil {
		event.CleanupError = job.CleanupErr.Error()
	}

	var (
		notice  notifications.Event
		payload notifications.Payload
	)
	if job.Err == nil && job.Document != nil {
		outcome.QuizTitle = job.Document.Title
		outcome.QuestionCount = len(job.Document.Questions)
		event.Type = events.TypeCompleted
		event.QuizTitle = job.Document.Title
		event.QuestionCount = len(job.Document.Questions)
		notice = notifications.EventQuizReady
		payload = notifications.Payload{
			"quizTitle":     job.Document.Title,
			"owner":         job.OwnerKey,
			"questionCount": strconv.Itoa(len(job.Document.Questions)),
		}
		logger.Info("conversion completed",
			logging.String("quiz_title", job.Document.Title),
			logging.Duration("duration", job.Duration()),
			logging.String(logging.FieldEventType, "conversion_complete"),
		)
	} else {
		stage, message := string(job.State), Message(job.Err)
		var convErr *Error
		if errors.As(job.Err, &convErr) {
			stage = string(convErr.Stage)
		}
		outcome.ErrorKind = KindName(job.Err)
		outcome.ErrorMessage = message
		event.Type = events.TypeFailed
		event.ErrorKind = outcome.ErrorKind
		event.Category = string(Classify(job.Err))
		event.Error = message
		notice = notifications.EventConversionFailed
		payload = notifications.Payload{
			"stage":     stage,
			"error":     message,
			"sourceURL": job.SourceURL,
		}
		logging.ErrorWithContext(logger, "conversion failed", "conversion_failure",
			logging.String("error_kind", outcome.ErrorKind),
			logging.String("category", event.Category),
			logging.String("error_message", message),
			logging.String(logging.FieldImpact, "no quiz produced"),
		)
	}

	p.record(ctx, logger, "finish", func(rctx context.Context) error {
		return p.recorder.Finish(rctx, job.ID, outcome)
	})

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := p.publisher.Publish(fctx, event); err != nil {
		logger.Warn("event publish failed", logging.Error(err), logging.String(logging.FieldEventType, "event_publish_failed"))
	}
	if err := p.notifier.Publish(fctx, notice, payload); err != nil {
		logger.Warn("notification failed", logging.Error(err), logging.String(logging.FieldEventType, "notification_failed"))
	}
}

// record runs a journal write when a recorder is configured. Journal errors
// are logged and never fail the job.
func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, op string, fn func(context.Context) error) {
	if p.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := fn(rctx); err != nil {
		logger.Warn("journal write failed",
			logging.String("operation", op),
			logging.Error(err),
			logging.String(logging.FieldEventType, "journal_write_failed"),
		)
	}
}
