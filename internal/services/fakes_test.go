package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/medreport/apiserver/internal/storage"
	"github.com/medreport/apiserver/internal/store"
	"github.com/medreport/apiserver/types"
)

type memUsers struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]types.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int]types.User{}}
}

func (m *memUsers) GetByID(_ context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) emailTaken(email string, except int) bool {
	for id, u := range m.byID {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (m *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(user.Email, 0) {
		return types.User{}, store.ErrDuplicateEmail
	}
	m.nextID++
	user.ID = m.nextID
	m.byID[user.ID] = user
	return user, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	if m.emailTaken(user.Email, user.ID) {
		return types.User{}, store.ErrDuplicateEmail
	}
	m.byID[user.ID] = user
	return user, nil
}

func (m *memUsers) SetProfileImage(_ context.Context, id int, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.ProfileImagePath = &path
	m.byID[id] = u
	return nil
}

type memFiles struct {
	mu        sync.Mutex
	nextID    int
	byID      map[int]types.MedicalFile
	createErr error
}

func newMemFiles() *memFiles {
	return &memFiles{byID: map[int]types.MedicalFile{}}
}

func (m *memFiles) Create(_ context.Context, file types.MedicalFile) (types.MedicalFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return types.MedicalFile{}, m.createErr
	}
	m.nextID++
	file.ID = m.nextID
	m.byID[file.ID] = file
	return file, nil
}

func (m *memFiles) ListByOwner(_ context.Context, ownerID int) ([]types.MedicalFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.MedicalFile, 0)
	for _, f := range m.byID {
		if f.UserID == ownerID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

func (m *memFiles) GetByOwner(_ context.Context, ownerID, id int) (types.MedicalFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.byID[id]
	if !ok || f.UserID != ownerID {
		return types.MedicalFile{}, store.ErrNotFound
	}
	return f, nil
}

func (m *memFiles) DeleteByOwner(_ context.Context, ownerID, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.byID[id]
	if !ok || f.UserID != ownerID {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	putErr    error
	deleteErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memBlobs) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memBlobs) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memBlobs) Location(key string) string {
	return "mem/" + key
}

func (m *memBlobs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

var errBoom = errors.New("boom")
