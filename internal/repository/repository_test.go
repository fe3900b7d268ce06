package repository

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/liliang-cn/askchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "askchat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessionLifecycle(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	session := &domain.Session{}
	require.NoError(t, repo.Create(session))
	assert.NotEmpty(t, session.ID)

	got, err := repo.Get(session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.ID, got.ID)

	missing, err := repo.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Delete(session.ID))
	err = repo.Delete(session.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSaveTranscriptKeepsOrderAndReplaces(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	session := &domain.Session{}
	require.NoError(t, repo.Create(session))

	first := []domain.Message{
		{Role: domain.RoleUser, Content: "what is go?"},
		{Role: domain.RoleAssistant, Content: "a language", Reasoning: "easy",
			Sources: []domain.Source{{Name: "go.pdf", URL: "http://x/go.pdf"}}},
	}
	require.NoError(t, repo.SaveTranscript(session.ID, first))

	second := append(first, domain.Message{Role: domain.RoleUser, Content: "and rust?"},
		domain.Message{Role: domain.RoleAssistant})
	require.NoError(t, repo.SaveTranscript(session.ID, second))

	msgs, err := repo.GetMessages(session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "what is go?", msgs[0].Content)
	assert.Equal(t, "easy", msgs[1].Reasoning)
	assert.Equal(t, []domain.Source{{Name: "go.pdf", URL: "http://x/go.pdf"}}, msgs[1].Sources)
	assert.Equal(t, "and rust?", msgs[2].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[3].Role)

	got, err := repo.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "what is go?", got.Title)

	chats, err := repo.CountChats()
	require.NoError(t, err)
	assert.Equal(t, 2, chats)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSaveTranscriptUnknownSession(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	err := repo.SaveTranscript("missing", nil)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDeleteCascadesMessages(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	session := &domain.Session{}
	require.NoError(t, repo.Create(session))
	require.NoError(t, repo.SaveTranscript(session.ID, []domain.Message{{Role: domain.RoleUser, Content: "hi"}}))

	require.NoError(t, repo.Delete(session.ID))
	msgs, err := repo.GetMessages(session.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestCredentials(t *testing.T) {
	repo := NewCredentialRepository(newTestDB(t))

	v, err := repo.Get("token")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, repo.Set("token", "a"))
	require.NoError(t, repo.Set("token", "b"))
	v, err = repo.Get("token")
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	require.NoError(t, repo.Delete("token"))
	require.NoError(t, repo.Delete("token"))
	v, err = repo.Get("token")
	require.NoError(t, err)
	assert.Empty(t, v)
}
