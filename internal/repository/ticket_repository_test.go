package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidesk-io/aidesk/internal/models"
)

func TestMemoryTicketRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		repo := NewMemoryTicketRepository()

		ticket, err := repo.Create(ctx, "Maria Silva", "maria@example.com", "Impressora não liga", true)
		require.NoError(t, err)

		assert.NotEmpty(t, ticket.ID)
		assert.Equal(t, models.StatusOpen, ticket.Status)
		assert.True(t, ticket.LGPDAccepted)
		assert.Nil(t, ticket.ResolvedAt)

		got, err := repo.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, got.ID)
		assert.Equal(t, "Maria Silva", got.ClientName)
	})

	t.Run("Create_RequiresName", func(t *testing.T) {
		repo := NewMemoryTicketRepository()

		_, err := repo.Create(ctx, "   ", "", "problema", true)
		assert.Error(t, err)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		repo := NewMemoryTicketRepository()

		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("List_FilterByStatus", func(t *testing.T) {
		repo := NewMemoryTicketRepository()

		open, err := repo.Create(ctx, "A", "", "p1", true)
		require.NoError(t, err)
		taken, err := repo.Create(ctx, "B", "", "p2", true)
		require.NoError(t, err)
		_, err = repo.UpdateStatus(ctx, taken.ID, models.StatusInProgress, nil)
		require.NoError(t, err)

		got, err := repo.List(ctx, []string{models.StatusOpen})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, open.ID, got[0].ID)

		both, err := repo.List(ctx, []string{models.StatusOpen, models.StatusInProgress})
		require.NoError(t, err)
		assert.Len(t, both, 2)
	})

	t.Run("UpdateStatus_Forward", func(t *testing.T) {
		repo := NewMemoryTicketRepository()

		ticket, err := repo.Create(ctx, "A", "", "p", true)
		require.NoError(t, err)

		now := time.Now().UTC()
		updated, err := repo.UpdateStatus(ctx, ticket.ID, models.StatusResolved, &now)
		require.NoError(t, err)
		assert.Equal(t, models.StatusResolved, updated.Status)
		require.NotNil(t, updated.ResolvedAt)
	})

	t.Run("UpdateStatus_RejectsBackward", func(t *testing.T) {
		repo := NewMemoryTicketRepository()

		ticket, err := repo.Create(ctx, "A", "", "p", true)
		require.NoError(t, err)
		_, err = repo.UpdateStatus(ctx, ticket.ID, models.StatusResolved, nil)
		require.NoError(t, err)

		_, err = repo.UpdateStatus(ctx, ticket.ID, models.StatusOpen, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		_, err = repo.UpdateStatus(ctx, ticket.ID, models.StatusInProgress, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("UpdateStatus_ClosedAlias", func(t *testing.T) {
		repo := NewMemoryTicketRepository()

		ticket, err := repo.Create(ctx, "A", "", "p", true)
		require.NoError(t, err)

		updated, err := repo.UpdateStatus(ctx, ticket.ID, "closed", nil)
		require.NoError(t, err)
		assert.Equal(t, models.StatusResolved, updated.Status)
	})

	t.Run("AssignTechnician", func(t *testing.T) {
		repo := NewMemoryTicketRepository()

		ticket, err := repo.Create(ctx, "A", "", "p", true)
		require.NoError(t, err)

		require.NoError(t, repo.AssignTechnician(ctx, ticket.ID, "tech-1"))

		got, err := repo.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		require.NotNil(t, got.AssignedTechnicianID)
		assert.Equal(t, "tech-1", *got.AssignedTechnicianID)
	})
}

func TestMemoryMessageRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("InsertAndList", func(t *testing.T) {
		repo := NewMemoryMessageRepository()

		first, err := repo.Insert(ctx, "T1", models.SenderClient, "Maria", "olá")
		require.NoError(t, err)
		second, err := repo.Insert(ctx, "T1", models.SenderAI, models.AssistantName, "Como posso ajudar?")
		require.NoError(t, err)
		_, err = repo.Insert(ctx, "T2", models.SenderClient, "José", "outro ticket")
		require.NoError(t, err)

		got, err := repo.ListByTicket(ctx, "T1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, first.ID, got[0].ID)
		assert.Equal(t, second.ID, got[1].ID)
	})

	t.Run("Insert_RejectsUnknownSender", func(t *testing.T) {
		repo := NewMemoryMessageRepository()

		_, err := repo.Insert(ctx, "T1", "bot", "x", "hi")
		assert.Error(t, err)
	})

	t.Run("Insert_RejectsEmptyContent", func(t *testing.T) {
		repo := NewMemoryMessageRepository()

		_, err := repo.Insert(ctx, "T1", models.SenderClient, "x", "  ")
		assert.Error(t, err)
	})
}

func TestMemoryFeedbackRepository(t *testing.T) {
	ctx := context.Background()

	repo := NewMemoryFeedbackRepository()

	avg, n, err := repo.AverageRating(ctx)
	require.NoError(t, err)
	assert.Zero(t, avg)
	assert.Zero(t, n)

	_, err = repo.Insert(ctx, "T1", 5, "ótimo atendimento")
	require.NoError(t, err)
	_, err = repo.Insert(ctx, "T2", 3, "")
	require.NoError(t, err)

	_, err = repo.Insert(ctx, "T3", 6, "")
	assert.Error(t, err)

	avg, n, err = repo.AverageRating(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, 2, n)
}
