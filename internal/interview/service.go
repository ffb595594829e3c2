package interview

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"career-hub/internal/llm"
	"career-hub/internal/shared/storage/object"
	"career-hub/internal/shared/telemetry"
	"career-hub/internal/shared/util"
	"career-hub/internal/usage"
)

// MaxAudioBytes is the largest clip accepted for transcription.
const MaxAudioBytes = 25 << 20

// Responder produces the interviewer's next line.
type Responder interface {
	Respond(ctx context.Context, in Input) (string, error)
}

// TextSource returns the extracted text of one of the user's documents.
type TextSource interface {
	Text(ctx context.Context, userID, documentID string) (string, error)
}

// StartRequest configures a new session.
type StartRequest struct {
	JobDescription string
	DocumentID     string
	CVText         string
}

// Result is the outcome of one candidate answer.
type Result struct {
	Answer string
	Reply  string
	Ended  bool
}

// Service manages interview sessions.
type Service struct {
	Repo        Repo
	Agent       Responder
	Transcriber llm.Transcriber
	Docs        TextSource
	Usage       *usage.Service
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Start opens a session with the first question. Starting a session consumes
// one quota unit.
func (s *Service) Start(ctx context.Context, userID string, req StartRequest) (Session, error) {
	cvText := strings.TrimSpace(req.CVText)
	if cvText == "" && strings.TrimSpace(req.DocumentID) != "" && s.Docs != nil {
		text, err := s.Docs.Text(ctx, userID, req.DocumentID)
		if err != nil {
			return Session{}, err
		}
		cvText = text
	}

	now := s.now()
	sess := Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		JobDescription: strings.TrimSpace(req.JobDescription),
		CVText:         cvText,
		Status:         StatusActive,
		Transcript:     []Turn{{Speaker: SpeakerInterviewer, Text: FirstQuestion}},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Usage.Gate(ctx, userID, func() error { return s.Repo.Create(ctx, sess) }); err != nil {
		return Session{}, err
	}

	telemetry.Info("interview.start", map[string]any{
		"request_id": telemetry.RequestIDFrom(ctx),
		"user_id":    userID,
		"session_id": sess.ID,
		"has_job":    sess.JobDescription != "",
		"has_cv":     sess.CVText != "",
	})
	return sess, nil
}

// Get returns one of the user's sessions.
func (s *Service) Get(ctx context.Context, userID, id string) (Session, error) {
	sess, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if sess.UserID != userID {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// List returns the user's sessions newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Session, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Claim moves a guest's sessions to the authenticated user.
func (s *Service) Claim(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if guestUserID == "" || authedUserID == "" || guestUserID == authedUserID {
		return 0, nil
	}
	return s.Repo.ClaimGuest(ctx, guestUserID, authedUserID)
}

// Answer records a typed answer and returns the interviewer's reply. An exit
// word ends the session instead.
func (s *Service) Answer(ctx context.Context, userID, id, text string) (Result, error) {
	sess, err := s.active(ctx, userID, id)
	if err != nil {
		return Result{}, err
	}
	return s.answer(ctx, sess, text)
}

// AnswerAudio transcribes a spoken answer and handles it like Answer. The
// same clip submitted twice in a row is rejected with ErrDuplicateAudio.
func (s *Service) AnswerAudio(ctx context.Context, userID, id, fileName string, audio []byte) (Result, error) {
	if len(audio) == 0 {
		return Result{}, fmt.Errorf("%w: audio is empty", ErrInvalidInput)
	}
	if len(audio) > MaxAudioBytes {
		return Result{}, fmt.Errorf("%w: audio exceeds 25MB", ErrInvalidInput)
	}
	head := audio
	if len(head) > 512 {
		head = head[:512]
	}
	if mime := object.DetectContentType(head, fileName); !strings.HasPrefix(mime, "audio/") {
		return Result{}, fmt.Errorf("%w: unsupported audio type %s", ErrInvalidInput, mime)
	}

	sess, err := s.active(ctx, userID, id)
	if err != nil {
		return Result{}, err
	}
	fingerprint := util.ContentFingerprint(audio)
	if sess.LastAudioHash == fingerprint {
		return Result{}, ErrDuplicateAudio
	}

	text, err := s.Transcriber.Transcribe(ctx, fileName, bytes.NewReader(audio))
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w: no speech detected", ErrInvalidInput)
	}
	sess.LastAudioHash = fingerprint
	return s.answer(ctx, sess, text)
}

// End closes an active session.
func (s *Service) End(ctx context.Context, userID, id string) (Session, error) {
	sess, err := s.active(ctx, userID, id)
	if err != nil {
		return Session{}, err
	}
	sess.Status = StatusEnded
	sess.Transcript = append(sess.Transcript, Turn{Speaker: SpeakerInterviewer, Text: ClosingLine})
	sess.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *Service) active(ctx context.Context, userID, id string) (Session, error) {
	sess, err := s.Get(ctx, userID, id)
	if err != nil {
		return Session{}, err
	}
	if sess.Status != StatusActive {
		return Session{}, ErrSessionEnded
	}
	return sess, nil
}

func (s *Service) answer(ctx context.Context, sess Session, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, fmt.Errorf("%w: answer is required", ErrInvalidInput)
	}

	if IsExitCommand(text) {
		sess.Status = StatusEnded
		sess.Transcript = append(sess.Transcript,
			Turn{Speaker: SpeakerCandidate, Text: text},
			Turn{Speaker: SpeakerInterviewer, Text: ClosingLine},
		)
		sess.UpdatedAt = s.now()
		if err := s.Repo.Update(ctx, sess); err != nil {
			return Result{}, err
		}
		return Result{Answer: text, Reply: ClosingLine, Ended: true}, nil
	}

	reply, err := s.Agent.Respond(ctx, Input{
		History:        FormatTranscript(sess.Transcript),
		Answer:         text,
		JobDescription: sess.JobDescription,
		CVText:         sess.CVText,
	})
	if err != nil {
		return Result{}, err
	}

	sess.Transcript = append(sess.Transcript,
		Turn{Speaker: SpeakerCandidate, Text: text},
		Turn{Speaker: SpeakerInterviewer, Text: reply},
	)
	sess.UpdatedAt = s.now()
	if err := s.Repo.Update(telemetry.Detach(ctx), sess); err != nil {
		return Result{}, err
	}
	return Result{Answer: text, Reply: reply}, nil
}
