package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamline/internal/domain"
	"teamline/internal/store/sqlite"
)

// newTestDB opens an in-memory database. A single pooled connection keeps
// the :memory: instance alive for the whole test.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, sqlite.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func seedChannel(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	ctx := context.Background()

	users := sqlite.NewUserRepo(db)
	for _, u := range []*domain.User{
		{ID: 7, Username: "ann", DisplayName: "Ann"},
		{ID: 8, Username: "bob", DisplayName: "Bob"},
	} {
		require.NoError(t, users.Upsert(ctx, u))
	}
	_, err := db.Exec(`INSERT INTO project_members (project_id, user_id) VALUES (1, 7), (1, 8)`)
	require.NoError(t, err)

	ch := &domain.Channel{ProjectID: 1, Name: "general"}
	require.NoError(t, sqlite.NewChannelRepo(db).Create(ctx, ch))
	return ch.ID
}

func postMessage(t *testing.T, repo *sqlite.MessageRepo, channelID, authorID int64, text string, parentID *int64) *domain.Message {
	t.Helper()
	m := &domain.Message{
		ChannelID: channelID,
		AuthorID:  authorID,
		Content:   &text,
		Type:      domain.MessageTypeText,
		ParentID:  parentID,
	}
	require.NoError(t, repo.Create(context.Background(), m))
	return m
}

func TestMessageRepoListRecent(t *testing.T) {
	db := newTestDB(t)
	chID := seedChannel(t, db)
	repo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	var all []*domain.Message
	for _, text := range []string{"one", "two", "three", "four", "five"} {
		all = append(all, postMessage(t, repo, chID, 7, text, nil))
	}
	// A reply must never appear in the top-level window.
	postMessage(t, repo, chID, 8, "reply", &all[0].ID)

	t.Run("WindowKeepsNewestInAscendingOrder", func(t *testing.T) {
		msgs, err := repo.ListRecent(ctx, chID, 3)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "three", *msgs[0].Content)
		assert.Equal(t, "four", *msgs[1].Content)
		assert.Equal(t, "five", *msgs[2].Content)
	})

	t.Run("LimitBeyondSizeReturnsEverything", func(t *testing.T) {
		msgs, err := repo.ListRecent(ctx, chID, 100)
		require.NoError(t, err)
		assert.Len(t, msgs, 5)
		for i := 1; i < len(msgs); i++ {
			assert.True(t, msgs[i].ID > msgs[i-1].ID)
		}
	})

	t.Run("UnknownChannelIsEmpty", func(t *testing.T) {
		msgs, err := repo.ListRecent(ctx, 999, 10)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}

func TestMessageRepoThreads(t *testing.T) {
	db := newTestDB(t)
	chID := seedChannel(t, db)
	repo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	parent := postMessage(t, repo, chID, 7, "root", nil)
	postMessage(t, repo, chID, 8, "first reply", &parent.ID)
	postMessage(t, repo, chID, 7, "second reply", &parent.ID)

	t.Run("ListThreadAscending", func(t *testing.T) {
		replies, err := repo.ListThread(ctx, parent.ID)
		require.NoError(t, err)
		require.Len(t, replies, 2)
		assert.Equal(t, "first reply", *replies[0].Content)
		assert.Equal(t, "second reply", *replies[1].Content)
	})

	t.Run("CountThreadReplies", func(t *testing.T) {
		n, err := repo.CountThreadReplies(ctx, parent.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("DeleteParentRemovesReplies", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, parent.ID))

		got, err := repo.GetByID(ctx, parent.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		n, err := repo.CountThreadReplies(ctx, parent.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestMessageRepoGetByID(t *testing.T) {
	db := newTestDB(t)
	chID := seedChannel(t, db)
	repo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	m := postMessage(t, repo, chID, 7, "hello", nil)

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hello", *got.Content)
	assert.False(t, got.CreatedAt.IsZero())

	missing, err := repo.GetByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestReadCursorRepo(t *testing.T) {
	db := newTestDB(t)
	chID := seedChannel(t, db)
	msgRepo := sqlite.NewMessageRepo(db)
	cursors := sqlite.NewReadCursorRepo(db)
	ctx := context.Background()

	var msgs []*domain.Message
	for _, text := range []string{"m1", "m2", "m3", "m4", "m5"} {
		msgs = append(msgs, postMessage(t, msgRepo, chID, 8, text, nil))
	}

	t.Run("NoCursorCountsEverythingByOthers", func(t *testing.T) {
		n, err := cursors.CountUnread(ctx, chID, 7)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})

	t.Run("OwnMessagesNeverCount", func(t *testing.T) {
		n, err := cursors.CountUnread(ctx, chID, 8)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("AdvanceShrinksCount", func(t *testing.T) {
		require.NoError(t, cursors.Advance(ctx, chID, 7, msgs[2].ID, time.Now()))
		n, err := cursors.CountUnread(ctx, chID, 7)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("OlderMarkIsANoOp", func(t *testing.T) {
		require.NoError(t, cursors.Advance(ctx, chID, 7, msgs[0].ID, time.Now()))

		cur, err := cursors.Get(ctx, chID, 7)
		require.NoError(t, err)
		require.NotNil(t, cur)
		assert.Equal(t, msgs[2].ID, cur.LastReadMessageID)

		n, err := cursors.CountUnread(ctx, chID, 7)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("AdvanceToLatestZeroesCount", func(t *testing.T) {
		require.NoError(t, cursors.Advance(ctx, chID, 7, msgs[4].ID, time.Now()))
		n, err := cursors.CountUnread(ctx, chID, 7)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("MissingCursorIsNil", func(t *testing.T) {
		cur, err := cursors.Get(ctx, chID, 99)
		require.NoError(t, err)
		assert.Nil(t, cur)
	})
}

func TestTypingRepo(t *testing.T) {
	db := newTestDB(t)
	chID := seedChannel(t, db)
	repo := sqlite.NewTypingRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Set(ctx, chID, 7, true, now))
	require.NoError(t, repo.Set(ctx, chID, 8, true, now.Add(-10*time.Second)))

	t.Run("FreshRowsOnly", func(t *testing.T) {
		ids, err := repo.ListActive(ctx, chID, now.Add(-6*time.Second))
		require.NoError(t, err)
		assert.Equal(t, []int64{7}, ids)
	})

	t.Run("ClearedRowDisappears", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, chID, 7, false, now))
		ids, err := repo.ListActive(ctx, chID, now.Add(-6*time.Second))
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("StaleRowRevivesOnUpsert", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, chID, 8, true, now))
		ids, err := repo.ListActive(ctx, chID, now.Add(-6*time.Second))
		require.NoError(t, err)
		assert.Equal(t, []int64{8}, ids)
	})
}

func TestChannelRepo(t *testing.T) {
	db := newTestDB(t)
	chID := seedChannel(t, db)
	repo := sqlite.NewChannelRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	t.Run("Rename", func(t *testing.T) {
		require.NoError(t, repo.Rename(ctx, chID, "renamed"))
		ch, err := repo.GetByID(ctx, chID)
		require.NoError(t, err)
		assert.Equal(t, "renamed", ch.Name)
	})

	t.Run("ListForProjects", func(t *testing.T) {
		second := &domain.Channel{ProjectID: 2, Name: "other"}
		require.NoError(t, repo.Create(ctx, second))

		chs, err := repo.ListForProjects(ctx, []int64{1, 2})
		require.NoError(t, err)
		assert.Len(t, chs, 2)

		chs, err = repo.ListForProjects(ctx, []int64{2})
		require.NoError(t, err)
		require.Len(t, chs, 1)
		assert.Equal(t, "other", chs[0].Name)

		chs, err = repo.ListForProjects(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, chs)
	})

	t.Run("DeleteCascadesToMessages", func(t *testing.T) {
		m := postMessage(t, msgRepo, chID, 7, "doomed", nil)
		require.NoError(t, repo.Delete(ctx, chID))

		got, err := msgRepo.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

// Foreign keys are per-connection state in SQLite, so the cascade has to
// hold on every pooled connection, not just the one that ran the
// migration. A file-backed database with idle connections disabled forces
// each statement onto a fresh connection.
func TestChannelDeleteCascadesAcrossPooledConnections(t *testing.T) {
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "pool.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxIdleConns(0)
	require.NoError(t, sqlite.Migrate(db))
	ctx := context.Background()

	chID := seedChannel(t, db)
	msgRepo := sqlite.NewMessageRepo(db)
	m := postMessage(t, msgRepo, chID, 7, "doomed", nil)

	require.NoError(t, sqlite.NewChannelRepo(db).Delete(ctx, chID))

	got, err := msgRepo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMembershipRepo(t *testing.T) {
	db := newTestDB(t)
	seedChannel(t, db)
	repo := sqlite.NewMembershipRepo(db)
	ctx := context.Background()

	ok, err := repo.IsMember(ctx, 1, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsMember(ctx, 1, 99)
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := repo.ListProjectIDs(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}
