package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taskmodels "fdctax/internal/tasks/models"
	"fdctax/internal/tasks/store"
	dErrors "fdctax/pkg/domain-errors"
)

func newService() *Service {
	return New(store.NewInMemoryTaskStore(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC) }),
	)
}

func paidRecord() map[string]any {
	return map[string]any{
		"wantsAssistance":   true,
		"firstName":         "Sam",
		"lastName":          "Lee",
		"businessStructure": "sole_trader",
		"businessStartDate": "2025-07-01",
		"registerForGST":    "yes",
		"estimatedTurnover": "80000",
		"gstStartDate":      "2025-07-01",
		"gstBasis":          "cash",
		"paymentIntentId":   "pi_123",
	}
}

func TestCreateForPaidABNSubmission(t *testing.T) {
	svc := newService()
	clientID := uuid.NewString()

	task, err := svc.CreateForSubmission(context.Background(), Submission{Flow: "abn-assistance", ClientID: clientID, Record: paidRecord()})
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, ABNTaskTitle, task.Title)
	assert.Equal(t, taskmodels.PriorityHigh, task.Priority)
	assert.Equal(t, taskmodels.StatusPending, task.Status)
	assert.Equal(t, ABNTaskAssignee, task.AssignedTo)
	assert.Contains(t, task.Description, "Client: Sam Lee")
	assert.Contains(t, task.Description, "Trading Name: N/A")
	assert.Contains(t, task.Description, "Est. Turnover: $80000")
	assert.Contains(t, task.Description, "Payment ID: pi_123")
}

func TestNoTaskForSelfGuidedOrLuna(t *testing.T) {
	svc := newService()
	rec := paidRecord()
	rec["wantsAssistance"] = false

	task, err := svc.CreateForSubmission(context.Background(), Submission{Flow: "abn-assistance", ClientID: uuid.NewString(), Record: rec})
	require.NoError(t, err)
	assert.Nil(t, task)

	task, err = svc.CreateForSubmission(context.Background(), Submission{Flow: "luna", ClientID: uuid.NewString(), Record: paidRecord()})
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestDuplicateSubmissionKeepsOnePendingTask(t *testing.T) {
	svc := newService()
	clientID := uuid.NewString()
	sub := Submission{Flow: "abn-assistance", ClientID: clientID, Record: paidRecord()}

	first, err := svc.CreateForSubmission(context.Background(), sub)
	require.NoError(t, err)
	require.NotNil(t, first)
	second, err := svc.CreateForSubmission(context.Background(), sub)
	require.NoError(t, err)
	assert.Nil(t, second)

	tasks, err := svc.List(context.Background(), clientID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestDescriptionEscapesInput(t *testing.T) {
	rec := paidRecord()
	rec["tradingName"] = "<script>x</script>"
	task, err := newService().CreateForSubmission(context.Background(), Submission{Flow: "abn-assistance", ClientID: uuid.NewString(), Record: rec})
	require.NoError(t, err)
	assert.NotContains(t, task.Description, "<script>")
}

func TestListRejectsBadClientID(t *testing.T) {
	_, err := newService().List(context.Background(), "nope")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}
