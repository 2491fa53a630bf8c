package service

import (
	"errors"

	"landmarket/internal/journal"
	"landmarket/internal/logger"
)

var ErrJournalDisabled = errors.New("audit journal is disabled")

// AuditService reads the tamper-evident journal that the Runner feeds.
type AuditService struct {
	journal *journal.Journal
}

// NewAuditService wraps j. A nil journal disables every read.
func NewAuditService(j *journal.Journal) *AuditService {
	return &AuditService{journal: j}
}

// Enabled reports whether a journal is configured.
func (s *AuditService) Enabled() bool {
	return s != nil && s.journal != nil
}

// GetSubjectLog returns the journal entries for an account, land, auction or
// offer id, oldest first.
func (s *AuditService) GetSubjectLog(subject string, limit int) ([]journal.Entry, error) {
	if !s.Enabled() {
		return nil, ErrJournalDisabled
	}
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	return s.journal.Query(subject, limit)
}

// VerifyChain checks the hash chain and returns the first broken sequence
// number, or 0 when intact.
func (s *AuditService) VerifyChain() (int64, error) {
	if !s.Enabled() {
		return 0, ErrJournalDisabled
	}
	bad, err := s.journal.Verify()
	if err != nil {
		return 0, err
	}
	if bad != 0 {
		logger.Error("audit journal chain broken", "seq", bad)
	}
	return bad, nil
}
