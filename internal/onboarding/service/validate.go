package service

import (
	"context"
	"time"

	"fdctax/internal/onboarding/flow"
	"fdctax/internal/onboarding/models"
	"fdctax/internal/validation"
)

// scheduleCheck resets the field's verdict and, once the input has reached
// its expected length, issues a check. Only the newest request may write a
// verdict back, so a slow answer for old input never overwrites a newer one.
func (s *Service) scheduleCheck(ctx context.Context, sess *models.Session, field string, kind validation.Kind) {
	seq := sess.ResetValidation(field)
	key := sess.ID + "/" + field
	s.stopTimer(key)

	raw := sess.Record.Text(field)
	if !validation.ReadyForCheck(kind, raw) {
		return
	}
	sess.MarkPending(field, seq)

	if s.debounce <= 0 {
		sess.ApplyValidation(field, seq, s.check(ctx, kind, raw))
		return
	}

	sessionID := sess.ID
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	s.bg.Add(1)
	s.timers[key] = time.AfterFunc(s.debounce, func() {
		defer s.bg.Done()
		s.timersMu.Lock()
		delete(s.timers, key)
		s.timersMu.Unlock()
		s.completeCheck(sessionID, field, seq, kind, raw)
	})
}

func (s *Service) stopTimer(key string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if t, ok := s.timers[key]; ok {
		if t.Stop() {
			s.bg.Done()
		}
		delete(s.timers, key)
	}
}

// completeCheck runs a debounced check and stores the verdict if seq is still current.
func (s *Service) completeCheck(sessionID, field string, seq uint64, kind validation.Kind, raw string) {
	ctx, cancel := context.WithTimeout(s.bgCtx, s.checkTimeout)
	defer cancel()

	res := s.check(ctx, kind, raw)
	err := s.locks.run(ctx, sessionID, func() error {
		sess, err := s.store.FindByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if !sess.ApplyValidation(field, seq, res) {
			s.logger.DebugContext(ctx, "discarding stale validation result",
				"session_id", sessionID,
				"field", field,
			)
			return nil
		}
		sess.UpdatedAt = s.clock()
		return s.store.Save(ctx, sess)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to store validation result",
			"session_id", sessionID,
			"field", field,
			"error", err,
		)
	}
}

// check never fails: a checker error becomes a negative verdict the user can retry.
func (s *Service) check(ctx context.Context, kind validation.Kind, raw string) validation.Result {
	res, err := s.checker.Check(ctx, kind, raw)
	if err != nil {
		s.logger.WarnContext(ctx, "identifier check failed", "kind", string(kind), "error", err)
		s.metrics.IncValidation(string(kind), "error")
		return validation.Failed(validation.MsgValidatorError)
	}
	return res
}

// revalidate checks every validator-backed field of a resumed record inline.
func (s *Service) revalidate(ctx context.Context, f *flow.Flow, sess *models.Session) {
	for _, st := range f.Stages {
		for _, fd := range st.Fields {
			if fd.Validator == "" || !sess.Record.Present(fd.Name) {
				continue
			}
			seq := sess.ResetValidation(fd.Name)
			raw := sess.Record.Text(fd.Name)
			if !validation.ReadyForCheck(fd.Validator, raw) {
				continue
			}
			sess.MarkPending(fd.Name, seq)
			sess.ApplyValidation(fd.Name, seq, s.check(ctx, fd.Validator, raw))
		}
	}
}
