package practice

import (
	"context"
	"net/http"
	"testing"

	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceCreate(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, NewPool(store, &fakeGen{}, 1, 4))
	ctx := context.Background()

	_, err := svc.Create(ctx, 3, models.PracticeRequest{InputText: "   "})
	status, msg := apperr.StatusOf(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Input text is required", msg)

	sess, err := svc.Create(ctx, 3, models.PracticeRequest{InputText: " Photosynthesis converts light. "})
	require.NoError(t, err)
	assert.Equal(t, models.PracticePending, sess.Status)
	assert.Equal(t, "Photosynthesis converts light.", sess.InputText)
}

func TestServiceGetOwnership(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, NewPool(store, &fakeGen{}, 1, 4))
	ctx := context.Background()

	sess, err := svc.Create(ctx, 3, models.PracticeRequest{InputText: "text"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, sess.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	_, err = svc.Get(ctx, sess.ID, 4)
	status, msg := apperr.StatusOf(err)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "You don't have permission to view this session", msg)

	_, err = svc.Get(ctx, 999, 3)
	assert.True(t, apperr.IsNotFound(err))

	list, err := svc.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
