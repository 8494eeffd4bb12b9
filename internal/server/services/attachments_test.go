package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

func newAttachmentEnv(t *testing.T) (*AttachmentService, sqlmock.Sqlmock, *fakeRepoManager) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	repos := newFakeRepoManager()
	svc := NewAttachmentService(db, repos, newRecordingLogger())
	svc.newID = sequentialIDs("att")
	return svc, mock, repos
}

func putObject(repos *fakeRepoManager, id, owner string) {
	repos.o.put(&models.StoredObject{ID: id, OwnerID: owner, OriginalName: id + ".txt", UploadedAt: time.Now().UTC()})
}

func TestAttach_Success(t *testing.T) {
	svc, mock, repos := newAttachmentEnv(t)
	putObject(repos, "file-1", "owner")

	mock.ExpectBegin()
	mock.ExpectCommit()

	a, err := svc.Attach(context.Background(), "owner", "task-1", "file-1")
	require.NoError(t, err)
	assert.Equal(t, "att-0001", a.ID)
	assert.Equal(t, "task-1", a.ParentID)
	assert.Equal(t, "file-1", a.ObjectID)
	assert.Equal(t, "owner", a.UploadedBy)
	require.NotNil(t, a.Object, "reloaded with the joined object")
	assert.Equal(t, "file-1.txt", a.Object.OriginalName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttach_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(repos *fakeRepoManager)
		wantErr error
	}{
		{
			name:    "object missing",
			setup:   func(repos *fakeRepoManager) {},
			wantErr: common.ErrNotFound,
		},
		{
			name: "object soft-deleted",
			setup: func(repos *fakeRepoManager) {
				repos.o.put(&models.StoredObject{ID: "file-1", OwnerID: "owner", IsDeleted: true})
			},
			wantErr: common.ErrNotFound,
		},
		{
			name:    "not owner",
			setup:   func(repos *fakeRepoManager) { putObject(repos, "file-1", "someone-else") },
			wantErr: common.ErrNotOwner,
		},
		{
			name: "already attached",
			setup: func(repos *fakeRepoManager) {
				putObject(repos, "file-1", "owner")
				repos.a.rows["existing"] = &models.Attachment{ID: "existing", ParentID: "task-1", ObjectID: "file-1"}
			},
			wantErr: common.ErrAlreadyAttached,
		},
		{
			name: "unique violation on insert",
			setup: func(repos *fakeRepoManager) {
				putObject(repos, "file-1", "owner")
				repos.a.insertErr = common.ErrAlreadyAttached
			},
			wantErr: common.ErrAlreadyAttached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock, repos := newAttachmentEnv(t)
			tt.setup(repos)

			mock.ExpectBegin()
			mock.ExpectRollback()

			a, err := svc.Attach(context.Background(), "owner", "task-1", "file-1")
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, a)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAttach_ExistsQueryFails(t *testing.T) {
	svc, mock, repos := newAttachmentEnv(t)
	putObject(repos, "file-1", "owner")
	repos.a.existsErr = errors.New("db down")

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Attach(context.Background(), "owner", "task-1", "file-1")
	require.Error(t, err)
	assert.False(t, common.IsClientError(err))
}

func TestDetach(t *testing.T) {
	t.Run("removes own attachment", func(t *testing.T) {
		svc, mock, repos := newAttachmentEnv(t)
		repos.a.rows["a1"] = &models.Attachment{ID: "a1", ParentID: "t", ObjectID: "f", UploadedBy: "owner"}

		mock.ExpectBegin()
		mock.ExpectCommit()

		ok, err := svc.Detach(context.Background(), "t", "a1", "owner")
		require.NoError(t, err)
		assert.True(t, ok)
		_, err = svc.GetAttachment(context.Background(), "a1")
		require.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("missing", func(t *testing.T) {
		svc, mock, _ := newAttachmentEnv(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		ok, err := svc.Detach(context.Background(), "t", "nope", "owner")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("not owner", func(t *testing.T) {
		svc, mock, repos := newAttachmentEnv(t)
		repos.a.rows["a1"] = &models.Attachment{ID: "a1", ParentID: "t", UploadedBy: "owner"}
		mock.ExpectBegin()
		mock.ExpectRollback()

		ok, err := svc.Detach(context.Background(), "t", "a1", "intruder")
		require.ErrorIs(t, err, common.ErrNotOwner)
		assert.False(t, ok)
		_, present := repos.a.rows["a1"]
		assert.True(t, present)
	})

	t.Run("attachment of another task", func(t *testing.T) {
		svc, mock, repos := newAttachmentEnv(t)
		repos.a.rows["a1"] = &models.Attachment{ID: "a1", ParentID: "t", ObjectID: "f", UploadedBy: "owner"}
		mock.ExpectBegin()
		mock.ExpectRollback()

		ok, err := svc.Detach(context.Background(), "other-task", "a1", "owner")
		require.NoError(t, err)
		assert.False(t, ok)
		_, present := repos.a.rows["a1"]
		assert.True(t, present)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListByParent_HidesDeletedObjects(t *testing.T) {
	svc, _, repos := newAttachmentEnv(t)
	putObject(repos, "live", "owner")
	repos.o.put(&models.StoredObject{ID: "gone", OwnerID: "owner", IsDeleted: true})

	now := time.Now().UTC()
	repos.a.rows["a1"] = &models.Attachment{ID: "a1", ParentID: "task", ObjectID: "live", UploadedAt: now}
	repos.a.rows["a2"] = &models.Attachment{ID: "a2", ParentID: "task", ObjectID: "gone", UploadedAt: now}
	repos.a.rows["a3"] = &models.Attachment{ID: "a3", ParentID: "other", ObjectID: "live", UploadedAt: now}

	list, err := svc.ListByParent(context.Background(), "task")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a1", list[0].ID)
	require.NotNil(t, list[0].Object)
}
