package repostore

import (
	"context"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
	"github.com/stretchr/testify/mock"
)

// MockRepoStore is a mock implementation of RepoStore for testing.
type MockRepoStore struct {
	mock.Mock
}

var _ contract.RepoStore = &MockRepoStore{} // Compile-time check

// Get implements the RepoStore interface.
func (m *MockRepoStore) Get(ctx context.Context, owner, name string) (*schema.RepoEntry, error) {
	args := m.Called(ctx, owner, name)
	entry, _ := args.Get(0).(*schema.RepoEntry)
	return entry, args.Error(1)
}

// AddRepo implements the RepoStore interface.
func (m *MockRepoStore) AddRepo(ctx context.Context, owner, name string, cloneSuccessful bool, repoSize int64) error {
	args := m.Called(ctx, owner, name, cloneSuccessful, repoSize)
	return args.Error(0)
}

// UpdateMakefile implements the RepoStore interface.
func (m *MockRepoStore) UpdateMakefile(ctx context.Context, owner, name string, makefiles []schema.RepoMakefileEntry, ignoreLengthMismatch bool) error {
	args := m.Called(ctx, owner, name, makefiles, ignoreLengthMismatch)
	return args.Error(0)
}

// CountMakefiles implements the RepoStore interface.
func (m *MockRepoStore) CountMakefiles(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// CountBinaries implements the RepoStore interface.
func (m *MockRepoStore) CountBinaries(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// GetStatus implements the RepoStore interface.
func (m *MockRepoStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	args := m.Called(ctx)
	status, _ := args.Get(0).(schema.StoreStatus)
	return status, args.Error(1)
}

// Clear implements the RepoStore interface.
func (m *MockRepoStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close implements the RepoStore interface.
func (m *MockRepoStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
