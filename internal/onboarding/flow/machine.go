package flow

import (
	"errors"

	"fdctax/internal/onboarding/models"
	"fdctax/internal/validation"
)

// Messages surfaced when a transition is refused.
const (
	MsgReadyToSubmit    = "Ready to submit"
	MsgFirstStage       = "Already at the first stage"
	MsgNotFinalStage    = "Please complete the remaining stages before submitting"
	MsgSubmissionFailed = "Submission failed - please try again"
)

var (
	// ErrSubmitInFlight is returned while a submission is outstanding.
	ErrSubmitInFlight = errors.New("submission already in progress")
	// ErrCompleted is returned for any transition after a successful submit.
	ErrCompleted = errors.New("onboarding already submitted")
)

// Refusal is an input error that keeps the session on its current stage.
type Refusal struct {
	Message string
}

func (r *Refusal) Error() string {
	return r.Message
}

func refuse(msg string) error {
	return &Refusal{Message: msg}
}

// Check validates the fields of stage id against the session. It returns the
// message to show, or "" when the stage may be left.
func (f *Flow) Check(s *models.Session, id int) string {
	st, ok := f.Stage(id)
	if !ok {
		return ""
	}
	for _, fd := range st.Fields {
		if !fd.Required || !fd.Visible(s.Record) {
			continue
		}
		missing := !s.Record.Present(fd.Name)
		if fd.Accept {
			missing = !s.Record.Truthy(fd.Name)
		}
		if missing {
			if fd.Message != "" {
				return fd.Message
			}
			return f.MissingMessage
		}
	}
	for _, fd := range st.Fields {
		if fd.Validator == "" || !fd.Visible(s.Record) || !s.Record.Present(fd.Name) {
			continue
		}
		if msg := validatorMessage(fd, s); msg != "" {
			return msg
		}
	}
	return ""
}

// validatorMessage requires a settled positive verdict. An outstanding check
// counts as not yet valid.
func validatorMessage(fd FieldDescriptor, s *models.Session) string {
	res := s.ValidationOf(fd.Name)
	switch {
	case res.IsValid():
		return ""
	case res.Loading:
		return "Please wait while we check your " + label(fd)
	case res.Evaluated() && res.Message != "":
		return res.Message
	}
	// Never checked: input is still short of its expected length.
	if local := validation.Validate(fd.Validator, s.Record.Text(fd.Name)); local.Evaluated() && !local.IsValid() {
		return local.Message
	}
	return "Please enter a valid " + label(fd)
}

func label(fd FieldDescriptor) string {
	switch fd.Validator {
	case validation.KindTFN:
		return "TFN"
	case validation.KindABN:
		return "ABN"
	}
	return fd.Label
}

// GoNext validates the current stage and advances to the next stage that is
// not skipped. A current stage that answers have since made skipped is left
// without validation. It never enters a completion stage; that only happens
// through CompleteSubmit.
func (f *Flow) GoNext(s *models.Session) error {
	if s.Complete {
		return ErrCompleted
	}
	if s.Submitting {
		return ErrSubmitInFlight
	}
	if cur, ok := f.Stage(s.Stage); ok && !cur.Skipped(s.Record) {
		if msg := f.Check(s, s.Stage); msg != "" {
			s.Error = msg
			return refuse(msg)
		}
	}
	if id := f.nextShown(s.Stage, s.Record); id != 0 {
		s.Stage = id
		s.Error = ""
		return nil
	}
	s.Error = ""
	return refuse(MsgReadyToSubmit)
}

// nextShown returns the first shown, non-completion stage after id, or 0.
func (f *Flow) nextShown(id int, r models.Record) int {
	for next := id + 1; next <= len(f.Stages); next++ {
		st := f.Stages[next-1]
		if st.Skipped(r) {
			continue
		}
		if st.Completion {
			return 0
		}
		return next
	}
	return 0
}

// prevShown returns the last shown stage before id, or 0.
func (f *Flow) prevShown(id int, r models.Record) int {
	for prev := min(id, len(f.Stages)+1) - 1; prev >= 1; prev-- {
		if !f.Stages[prev-1].Skipped(r) {
			return prev
		}
	}
	return 0
}

// Reposition moves s off its current stage once an answer has made that stage
// skipped: back to the closest shown stage, or forward when none precedes it.
func (f *Flow) Reposition(s *models.Session) {
	if s.Complete {
		return
	}
	cur, ok := f.Stage(s.Stage)
	if !ok || !cur.Skipped(s.Record) {
		return
	}
	if id := f.prevShown(s.Stage, s.Record); id != 0 {
		s.Stage = id
	} else if id := f.nextShown(s.Stage, s.Record); id != 0 {
		s.Stage = id
	}
}

// GoBack moves to the previous stage that is not skipped, without validation.
func (f *Flow) GoBack(s *models.Session) error {
	if s.Complete {
		return ErrCompleted
	}
	if s.Submitting {
		return ErrSubmitInFlight
	}
	if id := f.prevShown(s.Stage, s.Record); id != 0 {
		s.Stage = id
		s.Error = ""
		return nil
	}
	return refuse(MsgFirstStage)
}

// BeginSubmit freezes the session for submission. Only the last submittable
// stage may submit. Every shown stage is checked again, since answers stay
// editable after their stage was left; the first failing stage becomes current.
func (f *Flow) BeginSubmit(s *models.Session) error {
	if s.Complete {
		return ErrCompleted
	}
	if s.Submitting {
		return ErrSubmitInFlight
	}
	if s.Stage != f.LastSubmittable(s.Record) {
		s.Error = MsgNotFinalStage
		return refuse(MsgNotFinalStage)
	}
	for _, st := range f.Stages {
		if st.Completion || st.Skipped(s.Record) || st.ID > s.Stage {
			continue
		}
		if msg := f.Check(s, st.ID); msg != "" {
			s.Stage = st.ID
			s.Error = msg
			return refuse(msg)
		}
	}
	s.Submitting = true
	s.Error = ""
	return nil
}

// CompleteSubmit records the collaborator's answer and enters the complete state.
func (f *Flow) CompleteSubmit(s *models.Session, clientID, resumeToken string) {
	s.Submitting = false
	s.Complete = true
	s.Error = ""
	s.ClientID = clientID
	s.ResumeToken = resumeToken
	if id := f.CompletionStage(); id != 0 {
		s.Stage = id
	}
}

// FailSubmit returns the session to its pre-terminal stage with the record intact.
func (f *Flow) FailSubmit(s *models.Session, msg string) {
	if msg == "" {
		msg = MsgSubmissionFailed
	}
	s.Submitting = false
	s.Error = msg
}

// Progress returns the displayed position and percentage of the current stage.
func (f *Flow) Progress(s *models.Session) (number, total, percent int) {
	total = len(f.Stages)
	number = s.Stage
	if s.Complete {
		number = total
	}
	if total == 0 {
		return number, total, 0
	}
	return number, total, number * 100 / total
}
