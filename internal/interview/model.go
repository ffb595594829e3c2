package interview

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("interview session not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrSessionEnded   = errors.New("interview session has ended")
	ErrDuplicateAudio = errors.New("audio already submitted")
)

const (
	StatusActive = "active"
	StatusEnded  = "ended"
)

// Session is a persisted interview.
type Session struct {
	ID             string
	UserID         string
	JobDescription string
	CVText         string
	Status         string
	Transcript     []Turn
	LastAudioHash  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CurrentQuestion returns the interviewer's latest line.
func (s Session) CurrentQuestion() string {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Speaker == SpeakerInterviewer {
			return s.Transcript[i].Text
		}
	}
	return ""
}
