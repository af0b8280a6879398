package noteservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/models"
)

func TestRecordAI_History(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	n := mustCreate(t, svc, "Draft", "some text")

	empty, err := svc.AIHistory(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.AIResponse{}, empty)

	first, err := svc.RecordAI(ctx, models.AIResponse{NoteID: n.ID, Action: models.AIActionSummarize, Content: "short"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Timestamp.IsZero())
	_, err = svc.RecordAI(ctx, models.AIResponse{NoteID: n.ID, Action: models.AIActionExpand, Content: "longer"})
	require.NoError(t, err)

	history, err := svc.AIHistory(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, models.AIActionExpand, history[1].Action)

	require.NoError(t, svc.DeleteNote(ctx, n.ID))
	_, err = svc.AIHistory(ctx, n.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRecordAI_UnknownNote(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.RecordAI(context.Background(), models.AIResponse{NoteID: "ghost", Action: models.AIActionContinue})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRecordAI_StoreFailure(t *testing.T) {
	svc, mem := newTestService(t)
	n := mustCreate(t, svc, "Draft", "")
	boom := errors.New("disk full")
	mem.FailCommits(boom)
	defer mem.FailCommits(nil)

	_, err := svc.RecordAI(context.Background(), models.AIResponse{NoteID: n.ID, Action: models.AIActionEnhance})
	assert.ErrorIs(t, err, boom)
}

func TestNewAIRecord(t *testing.T) {
	r := NewAIRecord("n1", models.AIActionSuggestTags, "", []string{"go", "notes"})
	assert.Equal(t, "n1", r.NoteID)
	assert.JSONEq(t, `["go","notes"]`, string(r.Payload))

	assert.Nil(t, NewAIRecord("n1", models.AIActionSummarize, "text", nil).Payload)
	assert.Nil(t, NewAIRecord("n1", models.AIActionSummarize, "", func() {}).Payload, "unencodable payload dropped")
}
