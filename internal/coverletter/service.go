package coverletter

import (
	"context"
	"fmt"
	"strings"

	"career-hub/internal/usage"
)

// TextSource returns the extracted text of one of the user's documents.
type TextSource interface {
	Text(ctx context.Context, userID, documentID string) (string, error)
}

// Request selects the résumé either by stored document or raw text.
type Request struct {
	DocumentID     string
	CVText         string
	JobDescription string
}

// Service generates cover letters under the user's usage quota.
type Service struct {
	Generator *Generator
	Docs      TextSource
	Usage     *usage.Service
}

// Generate resolves the résumé text and writes a letter. A quota unit is
// consumed only when a letter is produced.
func (s *Service) Generate(ctx context.Context, userID string, req Request) (string, error) {
	if strings.TrimSpace(req.JobDescription) == "" {
		return "", fmt.Errorf("%w: jobDescription is required", ErrInvalidInput)
	}

	cvText := req.CVText
	if strings.TrimSpace(cvText) == "" {
		if strings.TrimSpace(req.DocumentID) == "" || s.Docs == nil {
			return "", fmt.Errorf("%w: documentId or cvText is required", ErrInvalidInput)
		}
		text, err := s.Docs.Text(ctx, userID, req.DocumentID)
		if err != nil {
			return "", err
		}
		cvText = text
	}

	var letter string
	err := s.Usage.Gate(ctx, userID, func() error {
		var err error
		letter, err = s.Generator.Generate(ctx, cvText, req.JobDescription)
		return err
	})
	return letter, err
}
