package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/events"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/attachments"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/objects"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
)

// -------- test fakes --------

type fakeObjectsRepo struct {
	objects.Repository

	mu   sync.Mutex
	rows map[string]*models.StoredObject

	insertErr     error
	onInsert      func(obj *models.StoredObject)
	softDeleteErr error
	// forceSoftDeleteMiss simulates a concurrent delete winning the race.
	forceSoftDeleteMiss bool
}

func newFakeObjectsRepo() *fakeObjectsRepo {
	return &fakeObjectsRepo{rows: map[string]*models.StoredObject{}}
}

func (f *fakeObjectsRepo) Insert(ctx context.Context, obj *models.StoredObject) error {
	if f.onInsert != nil {
		f.onInsert(obj)
	}
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *obj
	f.rows[obj.ID] = &cp
	return nil
}

func (f *fakeObjectsRepo) GetByID(ctx context.Context, id string) (*models.StoredObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.rows[id]
	if !ok || o.IsDeleted {
		return nil, common.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeObjectsRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.StoredObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*models.StoredObject, 0)
	for _, o := range f.rows {
		if o.OwnerID == ownerID && !o.IsDeleted {
			cp := *o
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UploadedAt.After(result[j].UploadedAt) })
	return result, nil
}

func (f *fakeObjectsRepo) ListLive(ctx context.Context, afterID string, limit int) ([]*models.StoredObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, o := range f.rows {
		if !o.IsDeleted && id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	result := make([]*models.StoredObject, 0)
	for _, id := range ids {
		if len(result) == limit {
			break
		}
		cp := *f.rows[id]
		result = append(result, &cp)
	}
	return result, nil
}

func (f *fakeObjectsRepo) SoftDelete(ctx context.Context, id string) (bool, error) {
	if f.softDeleteErr != nil {
		return false, f.softDeleteErr
	}
	if f.forceSoftDeleteMiss {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.rows[id]
	if !ok || o.IsDeleted {
		return false, nil
	}
	o.IsDeleted = true
	return true, nil
}

func (f *fakeObjectsRepo) put(o *models.StoredObject) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *o
	f.rows[o.ID] = &cp
}

func (f *fakeObjectsRepo) raw(id string) (*models.StoredObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.rows[id]
	return o, ok
}

func (f *fakeObjectsRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeAttachmentsRepo struct {
	attachments.Repository

	mu        sync.Mutex
	rows      map[string]*models.Attachment
	objects   *fakeObjectsRepo
	insertErr error
	existsErr error
}

func newFakeAttachmentsRepo(objs *fakeObjectsRepo) *fakeAttachmentsRepo {
	return &fakeAttachmentsRepo{rows: map[string]*models.Attachment{}, objects: objs}
}

func (f *fakeAttachmentsRepo) Insert(ctx context.Context, a *models.Attachment) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeAttachmentsRepo) Exists(ctx context.Context, parentID, objectID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.rows {
		if a.ParentID == parentID && a.ObjectID == objectID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAttachmentsRepo) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	f.mu.Lock()
	a, ok := f.rows[id]
	f.mu.Unlock()
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *a
	if o, ok := f.objects.raw(a.ObjectID); ok {
		oc := *o
		cp.Object = &oc
	}
	return &cp, nil
}

func (f *fakeAttachmentsRepo) ListByParent(ctx context.Context, parentID string) ([]*models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*models.Attachment, 0)
	for _, a := range f.rows {
		if a.ParentID != parentID {
			continue
		}
		o, ok := f.objects.raw(a.ObjectID)
		if !ok || o.IsDeleted {
			continue
		}
		cp := *a
		oc := *o
		cp.Object = &oc
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UploadedAt.After(result[j].UploadedAt) })
	return result, nil
}

func (f *fakeAttachmentsRepo) Delete(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return false, nil
	}
	delete(f.rows, id)
	return true, nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	o *fakeObjectsRepo
	a *fakeAttachmentsRepo
}

func (m *fakeRepoManager) Objects(db dbx.DBTX) objects.Repository         { return m.o }
func (m *fakeRepoManager) Attachments(db dbx.DBTX) attachments.Repository { return m.a }

func newFakeRepoManager() *fakeRepoManager {
	o := newFakeObjectsRepo()
	return &fakeRepoManager{o: o, a: newFakeAttachmentsRepo(o)}
}

type sinkRecorder struct {
	mu     sync.Mutex
	events []events.ObjectCreated
}

func (s *sinkRecorder) Dispatch(_ context.Context, evt events.ObjectCreated) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return true
}

func (s *sinkRecorder) got() []events.ObjectCreated {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.ObjectCreated(nil), s.events...)
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Debug(_ context.Context, msg string, args ...any) { l.add("DEBUG", msg, args) }
func (l *recordingLogger) Info(_ context.Context, msg string, args ...any)  { l.add("INFO", msg, args) }
func (l *recordingLogger) Warn(_ context.Context, msg string, args ...any)  { l.add("WARN", msg, args) }
func (l *recordingLogger) Error(_ context.Context, msg string, args ...any) { l.add("ERROR", msg, args) }
func (l *recordingLogger) Critical(_ context.Context, msg string, args ...any) {
	l.add("CRITICAL", msg, args)
}
func (l *recordingLogger) With(args ...any) logging.Logger { return l }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range *l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%04d", prefix, n)
	}
}
