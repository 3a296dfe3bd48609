package analyses

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"lexease-backend/internal/documents"
	"lexease-backend/internal/events"
	"lexease-backend/internal/llm"
	"lexease-backend/internal/queue"
	"lexease-backend/internal/shared/metrics"
	"lexease-backend/internal/shared/requestctx"
	"lexease-backend/internal/shared/telemetry"
)

// Run states reported by Status.
const (
	StatusIdle       = "idle"
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusPartial    = "partial"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Service orchestrates the summary, entity and risk stages for a document.
type Service struct {
	Docs   documents.DocumentsRepo
	LLM    llm.Client
	Events events.Publisher
	// Queue, when set, hands runs to the worker instead of a goroutine.
	Queue queue.Client
	Mode  Mode

	guardOnce sync.Once
	guard     *inFlight
}

// StartRequest asks for a document to be analyzed.
type StartRequest struct {
	UserID     string
	DocumentID string
	Role       Role
	Mode       Mode
}

// StartResult describes an accepted run.
type StartResult struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
	Role       Role   `json:"role"`
	Mode       Mode   `json:"mode"`
}

// Validate rejects input that must never reach the LLM.
func Validate(text string, role Role) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: document text is empty", ErrValidation)
	}
	switch role {
	case RoleLayperson, RoleLawStudent, RoleLawyer:
		return nil
	}
	return fmt.Errorf("%w: unknown role %q", ErrValidation, role)
}

// Start validates the request and begins a run in the background, or
// enqueues it when a job queue is configured.
func (s *Service) Start(ctx context.Context, req StartRequest) (StartResult, error) {
	if req.UserID == "" || req.DocumentID == "" {
		return StartResult{}, fmt.Errorf("%w: document id is required", ErrValidation)
	}
	mode, err := ParseMode(string(req.Mode), s.Mode)
	if err != nil {
		return StartResult{}, err
	}
	if req.Role == "" {
		req.Role = DefaultRole
	}
	doc, err := s.Docs.GetByID(ctx, req.UserID, req.DocumentID)
	if err != nil {
		return StartResult{}, err
	}
	if err := Validate(doc.DocumentText, req.Role); err != nil {
		return StartResult{}, err
	}
	result := StartResult{DocumentID: doc.ID, Role: req.Role, Mode: mode}

	if s.Queue != nil {
		msg := queue.Message{
			DocumentID: doc.ID,
			UserID:     req.UserID,
			Role:       string(req.Role),
			Mode:       string(mode),
			RequestID:  requestctx.RequestID(ctx),
			EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
			Version:    queue.MessageVersion,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			return StartResult{}, fmt.Errorf("enqueue analysis: %w", err)
		}
		telemetry.Info("analysis.enqueued", map[string]any{
			"request_id":  msg.RequestID,
			"document_id": doc.ID,
			"user_id":     req.UserID,
			"mode":        string(mode),
		})
		s.inflight().markQueued(doc.ID)
		result.Status = StatusQueued
		return result, nil
	}

	if !s.inflight().acquire(doc.ID) {
		return StartResult{}, ErrAnalysisInProgress
	}
	go func(ctx context.Context) {
		defer s.inflight().release(doc.ID)
		defer func() {
			if r := recover(); r != nil {
				s.finish(ctx, doc.ID, mode, time.Now(), fmt.Errorf("panic: %v", r))
			}
		}()
		_ = s.execute(ctx, doc, req.Role, mode)
	}(requestctx.Detach(ctx))

	result.Status = StatusProcessing
	return result, nil
}

// ProcessJob runs a queued analysis synchronously. It is the worker entry point.
func (s *Service) ProcessJob(ctx context.Context, msg queue.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.RequestID != "" {
		ctx = requestctx.WithRequestID(ctx, msg.RequestID)
	}
	role, err := ParseRole(msg.Role)
	if err != nil {
		return err
	}
	mode, err := ParseMode(msg.Mode, s.Mode)
	if err != nil {
		return err
	}
	doc, err := s.Docs.GetByID(ctx, msg.UserID, msg.DocumentID)
	if err != nil {
		return fmt.Errorf("document lookup id=%s: %w", msg.DocumentID, err)
	}
	if err := Validate(doc.DocumentText, role); err != nil {
		return err
	}
	if !s.inflight().acquire(doc.ID) {
		return ErrAnalysisInProgress
	}
	defer s.inflight().release(doc.ID)
	return s.execute(ctx, doc, role, mode)
}

// Status summarizes where a document's analysis stands. A run with at least
// one stored stage result and a failed sibling is partial, not failed.
func (s *Service) Status(documentID string, a documents.Analysis) string {
	hasResult := a.Summary != nil || a.Entities != nil || a.Risks != nil
	switch {
	case s.inflight().running(documentID):
		return StatusProcessing
	case s.inflight().isQueued(documentID) && !hasResult && len(a.Errors) == 0:
		return StatusQueued
	}
	if hasResult || len(a.Errors) > 0 {
		s.inflight().clearQueued(documentID)
	}
	switch {
	case a.Complete():
		return StatusCompleted
	case hasResult:
		return StatusPartial
	case len(a.Errors) > 0:
		return StatusFailed
	}
	return StatusIdle
}

func (s *Service) execute(ctx context.Context, doc documents.Document, role Role, mode Mode) error {
	start := time.Now()
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"request_id":  requestctx.RequestID(ctx),
		"user_id":     doc.UserID,
		"document_id": doc.ID,
		"status":      StatusProcessing,
		"mode":        string(mode),
		"role":        string(role),
	})
	s.publish(events.Event{Type: events.TypeAnalysisStarted, DocumentID: doc.ID, Payload: map[string]string{"mode": string(mode), "role": string(role)}})

	var err error
	if mode == ModeBatch {
		_, err = s.RunBatch(ctx, doc.ID, doc.DocumentText, role)
	} else {
		err = s.RunStreaming(ctx, doc.ID, doc.DocumentText, role)
	}
	s.finish(ctx, doc.ID, mode, start, err)
	return err
}

func (s *Service) finish(ctx context.Context, documentID string, mode Mode, start time.Time, err error) {
	elapsed := metrics.SinceMillis(start)
	metrics.ObserveAnalysisDurationMs(elapsed)
	fields := map[string]any{
		"request_id":  requestctx.RequestID(ctx),
		"document_id": documentID,
		"mode":        string(mode),
		"duration_ms": elapsed,
	}
	if err == nil {
		metrics.IncAnalysisCompleted()
		fields["status"] = StatusCompleted
		telemetry.Info("analysis.status", fields)
		s.publish(events.Event{Type: events.TypeAnalysisCompleted, DocumentID: documentID})
		return
	}

	if failed := failedStages(mode, err); failed != nil {
		metrics.IncAnalysisCompleted()
		fields["status"] = StatusPartial
		fields["failed_stages"] = failed
		telemetry.Warn("analysis.status", fields)
		s.publish(events.Event{Type: events.TypeAnalysisPartial, DocumentID: documentID, Error: sanitizeError(err), Payload: map[string]any{"failedStages": failed}})
		return
	}

	metrics.IncAnalysisFailed()
	code, retryable := classifyFailure(err)
	fields["status"] = StatusFailed
	fields["error_code"] = code
	fields["retryable"] = retryable
	fields["error"] = sanitizeError(err)
	telemetry.Error("analysis.status", fields)
	s.publish(events.Event{Type: events.TypeAnalysisFailed, DocumentID: documentID, Error: sanitizeError(err), Payload: map[string]any{"code": code, "retryable": retryable}})
}

// failedStages lists the stages that failed when a streaming run stored at
// least one result. It returns nil when the run failed outright.
func failedStages(mode Mode, err error) []string {
	if mode != ModeStreaming {
		return nil
	}
	stageErrs := StageErrors(err)
	if len(stageErrs) == 0 || len(stageErrs) >= len(Stages) {
		return nil
	}
	out := make([]string, 0, len(stageErrs))
	for _, se := range stageErrs {
		out = append(out, string(se.Stage))
	}
	sort.Strings(out)
	return out
}

// Analyze runs the three stages concurrently and returns their combined
// result without persisting anything. Any stage failure fails the call.
func (s *Service) Analyze(ctx context.Context, text string, role Role) (documents.Analysis, error) {
	if err := Validate(text, role); err != nil {
		return documents.Analysis{}, err
	}
	var (
		summary  documents.Summary
		entities documents.Entities
		risks    documents.Risks
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		summary, err = runTimed(gctx, StageSummary, func(ctx context.Context) (documents.Summary, error) {
			return s.summarize(ctx, text, role)
		})
		return err
	})
	g.Go(func() (err error) {
		entities, err = runTimed(gctx, StageEntities, func(ctx context.Context) (documents.Entities, error) {
			return s.extractEntities(ctx, text)
		})
		return err
	})
	g.Go(func() (err error) {
		risks, err = runTimed(gctx, StageRisks, func(ctx context.Context) (documents.Risks, error) {
			return s.flagRisks(ctx, text)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return documents.Analysis{}, err
	}
	return documents.Analysis{Summary: &summary, Entities: &entities, Risks: &risks}, nil
}

// RunBatch waits for every stage and writes a single combined update. If any
// stage fails nothing is persisted.
func (s *Service) RunBatch(ctx context.Context, documentID, text string, role Role) (documents.Analysis, error) {
	analysis, err := s.Analyze(ctx, text, role)
	if err != nil {
		return documents.Analysis{}, err
	}
	if err := s.Docs.UpsertAnalysis(ctx, documentID, analysis); err != nil {
		return documents.Analysis{}, fmt.Errorf("persist analysis: %w", err)
	}
	for _, stage := range Stages {
		s.publish(events.Event{Type: events.TypeStageCompleted, DocumentID: documentID, Stage: string(stage), Payload: stagePayload(analysis, stage)})
	}
	return analysis, nil
}

// RunStreaming runs the stages independently. Each result is persisted and
// published as soon as it resolves; a failed stage is recorded against that
// stage only. The returned error joins every *StageError.
func (s *Service) RunStreaming(ctx context.Context, documentID, text string, role Role) error {
	if err := Validate(text, role); err != nil {
		return err
	}

	var (
		mu     sync.Mutex
		failed []error
		wg     sync.WaitGroup
	)
	run := func(stage Stage, fn func(context.Context) (any, error), persist func(context.Context, any) error) {
		defer wg.Done()
		err := s.streamStage(ctx, documentID, stage, fn, persist)
		if err != nil {
			mu.Lock()
			failed = append(failed, err)
			mu.Unlock()
		}
	}

	wg.Add(len(Stages))
	go run(StageSummary,
		func(ctx context.Context) (any, error) { return s.summarize(ctx, text, role) },
		func(ctx context.Context, v any) error { return s.Docs.UpsertSummary(ctx, documentID, v.(documents.Summary)) })
	go run(StageEntities,
		func(ctx context.Context) (any, error) { return s.extractEntities(ctx, text) },
		func(ctx context.Context, v any) error { return s.Docs.UpsertEntities(ctx, documentID, v.(documents.Entities)) })
	go run(StageRisks,
		func(ctx context.Context) (any, error) { return s.flagRisks(ctx, text) },
		func(ctx context.Context, v any) error { return s.Docs.UpsertRisks(ctx, documentID, v.(documents.Risks)) })
	wg.Wait()

	return errors.Join(failed...)
}

func (s *Service) streamStage(ctx context.Context, documentID string, stage Stage, fn func(context.Context) (any, error), persist func(context.Context, any) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = s.recordStageFailure(ctx, documentID, stage, fmt.Errorf("panic: %v", r))
		}
	}()

	start := time.Now()
	result, err := fn(ctx)
	if err != nil {
		metrics.ObserveStage(string(stage), "failed", metrics.SinceMillis(start))
		return s.recordStageFailure(ctx, documentID, stage, err)
	}
	if err := persist(ctx, result); err != nil {
		metrics.ObserveStage(string(stage), "persist_failed", metrics.SinceMillis(start))
		return s.recordStageFailure(ctx, documentID, stage, fmt.Errorf("persist: %w", err))
	}
	metrics.ObserveStage(string(stage), "completed", metrics.SinceMillis(start))
	telemetry.Info("analysis.stage", map[string]any{
		"request_id":  requestctx.RequestID(ctx),
		"document_id": documentID,
		"stage":       string(stage),
		"status":      StatusCompleted,
		"duration_ms": metrics.SinceMillis(start),
	})
	s.publish(events.Event{Type: events.TypeStageCompleted, DocumentID: documentID, Stage: string(stage), Payload: result})
	return nil
}

// recordStageFailure logs, stores and publishes a stage error. Failing to
// store it is logged only; the stage error is what the caller sees.
func (s *Service) recordStageFailure(ctx context.Context, documentID string, stage Stage, err error) error {
	stageErr := &StageError{Stage: stage, Err: err}
	code, retryable := classifyFailure(err)
	msg := sanitizeError(err)
	telemetry.Error("analysis.stage", map[string]any{
		"request_id":  requestctx.RequestID(ctx),
		"document_id": documentID,
		"stage":       string(stage),
		"status":      StatusFailed,
		"error_code":  code,
		"retryable":   retryable,
		"error":       msg,
	})
	if !errors.Is(err, documents.ErrPersistence) {
		if upErr := s.Docs.UpsertStageError(ctx, documentID, string(stage), msg); upErr != nil {
			telemetry.Error("analysis.stage_error_persist_failed", map[string]any{
				"document_id": documentID,
				"stage":       string(stage),
				"error":       upErr,
			})
		}
	}
	s.publish(events.Event{Type: events.TypeStageFailed, DocumentID: documentID, Stage: string(stage), Error: msg, Payload: map[string]any{"code": code, "retryable": retryable}})
	return stageErr
}

func (s *Service) publish(ev events.Event) {
	if s.Events != nil {
		s.Events.Publish(ev)
	}
}

func (s *Service) inflight() *inFlight {
	s.guardOnce.Do(func() { s.guard = newInFlight() })
	return s.guard
}

// runTimed runs fn, records its duration and tags a failure with its stage.
func runTimed[T any](ctx context.Context, stage Stage, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	out, err := fn(ctx)
	if err != nil {
		metrics.ObserveStage(string(stage), "failed", metrics.SinceMillis(start))
		var zero T
		return zero, &StageError{Stage: stage, Err: err}
	}
	metrics.ObserveStage(string(stage), "completed", metrics.SinceMillis(start))
	return out, nil
}

func stagePayload(a documents.Analysis, stage Stage) any {
	switch stage {
	case StageSummary:
		return a.Summary
	case StageEntities:
		return a.Entities
	default:
		return a.Risks
	}
}
