package notes

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/quill/pkg/ownership"
)

func newTestStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS notes").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

var noteColumns = []string{"id", "title", "content", "user_id", "created_at", "updated_at", "attachment_ids"}

func TestStoreFind(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now()

	t.Run("found with attachments", func(t *testing.T) {
		mock.ExpectQuery("SELECT n.id, n.title").
			WithArgs("note-1").
			WillReturnRows(sqlmock.NewRows(noteColumns).
				AddRow("note-1", "t", "c", "user-a", now, nil, "{att-1,att-2}"))

		note, err := store.Find(context.Background(), "note-1")
		require.NoError(t, err)
		assert.Equal(t, "user-a", note.OwnerID())
		assert.Equal(t, []string{"att-1", "att-2"}, note.AttachmentIDs)
		assert.Nil(t, note.UpdatedAt)
	})

	t.Run("found without attachments", func(t *testing.T) {
		mock.ExpectQuery("SELECT n.id, n.title").
			WithArgs("note-2").
			WillReturnRows(sqlmock.NewRows(noteColumns).
				AddRow("note-2", "t", "c", "user-a", now, now, "{}"))

		note, err := store.Find(context.Background(), "note-2")
		require.NoError(t, err)
		assert.Empty(t, note.AttachmentIDs)
		assert.NotNil(t, note.UpdatedAt)
	})

	t.Run("missing id", func(t *testing.T) {
		mock.ExpectQuery("SELECT n.id, n.title").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(noteColumns))

		_, err := store.Find(context.Background(), "missing")
		assert.ErrorIs(t, err, ownership.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreFindAllByOwner(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT n.id, n.title").
		WithArgs("user-a").
		WillReturnRows(sqlmock.NewRows(noteColumns).
			AddRow("note-1", "t1", "c1", "user-a", now, nil, "{att-1}").
			AddRow("note-2", "t2", "c2", "user-a", now, nil, "{}"))

	result, err := store.FindAllByOwner(context.Background(), "user-a")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, []string{"att-1"}, result[0].AttachmentIDs)
	assert.Empty(t, result[1].AttachmentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCreate(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO notes").
		WithArgs(sqlmock.AnyArg(), "title", "content", "user-a").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	note, err := store.Create(context.Background(), &Note{Title: "title", Content: "content", UserID: "user-a"})
	require.NoError(t, err)
	assert.NotEmpty(t, note.ID)
	assert.Equal(t, []string{}, note.AttachmentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpdate(t *testing.T) {
	store, mock := newTestStore(t)

	t.Run("existing row", func(t *testing.T) {
		mock.ExpectExec("UPDATE notes SET").
			WithArgs("t", "c", sqlmock.AnyArg(), "note-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		note, err := store.Update(context.Background(), &Note{ID: "note-1", Title: "t", Content: "c"})
		require.NoError(t, err)
		assert.NotNil(t, note.UpdatedAt)
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec("UPDATE notes SET").
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := store.Update(context.Background(), &Note{ID: "missing"})
		assert.ErrorIs(t, err, ownership.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreDelete(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("DELETE FROM notes WHERE").
		WithArgs("note-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), "note-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreAttachments(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now()

	t.Run("create", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO note_attachments").
			WithArgs(sqlmock.AnyArg(), "note-1", "notes/abc_doc.pdf", "doc.pdf", "application/pdf", int64(1024), "http://blobs/doc").
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

		attachment, err := store.CreateAttachment(context.Background(), &Attachment{
			NoteID:   "note-1",
			FilePath: "notes/abc_doc.pdf",
			FileName: "doc.pdf",
			MimeType: "application/pdf",
			Size:     1024,
			URL:      "http://blobs/doc",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, attachment.ID)
	})

	t.Run("find by note", func(t *testing.T) {
		columns := []string{"id", "note_id", "file_path", "file_name", "mime_type", "size", "url", "created_at"}
		mock.ExpectQuery("SELECT id, note_id").
			WithArgs("note-1").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("att-1", "note-1", "notes/p", "f.txt", "text/plain", 10, "http://u", now))

		attachments, err := store.FindAttachmentsByNote(context.Background(), "note-1")
		require.NoError(t, err)
		require.Len(t, attachments, 1)
		assert.Equal(t, "att-1", attachments[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM note_attachments").
			WithArgs("att-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.DeleteAttachment(context.Background(), "att-1"))
	})

	t.Run("list paths", func(t *testing.T) {
		mock.ExpectQuery("SELECT file_path FROM note_attachments").
			WillReturnRows(sqlmock.NewRows([]string{"file_path"}).
				AddRow("notes/a").
				AddRow("notes/b"))

		paths, err := store.ListAttachmentPaths(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"notes/a", "notes/b"}, paths)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
