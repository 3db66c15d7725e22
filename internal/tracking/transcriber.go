package tracking

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/yarnscape/backend/internal/patterns"
	"go.uber.org/zap"
)

// ErrTranscriptionUnavailable indicates no speech-to-text capability is
// configured. The condition is non-fatal: the feature is simply disabled
// and the caller tells the user so.
var ErrTranscriptionUnavailable = errors.New("tracking: speech transcription is not available")

// Transcriber converts recorded audio into a final transcript. Partial
// results stay inside the implementation; only the final transcript is
// surfaced and appended as a note.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

// AppendTranscript runs the recorded audio through the configured
// transcriber and appends the final transcript as a new note on the project.
// Blank transcripts are dropped without a write.
func (s *Service) AppendTranscript(ctx context.Context, userID patterns.UserID, projectID ProjectID, audio io.Reader) (Project, error) {
	if s.transcriber == nil {
		return Project{}, newServiceError(opTranscript, "unavailable", ErrTranscriptionUnavailable)
	}

	record, err := s.ownedProject(ctx, userID, projectID, opTranscript)
	if err != nil {
		return Project{}, err
	}

	transcript, err := s.transcriber.Transcribe(ctx, audio)
	if err != nil {
		s.logError(opTranscript, "transcribe_failed", err,
			zap.String("user_id", userID.String()),
			zap.String("project_id", projectID.String()))
		return Project{}, newServiceError(opTranscript, "transcribe_failed", err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return record, nil
	}

	record.Notes = append(record.Notes, transcript)
	record.LastEditedSeconds = s.clock().UTC().Unix()
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		s.logError(opTranscript, "save_failed", err,
			zap.String("user_id", userID.String()),
			zap.String("project_id", projectID.String()))
		return Project{}, newServiceError(opTranscript, "save_failed", err)
	}
	return record, nil
}
