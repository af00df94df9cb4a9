package repostore

import (
	"context"
	"fmt"
	"sync"

	"github.com/huangsam/buildwatch/internal/contract"
)

// StoreManager holds the process-wide RepoStore.
type StoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	store        contract.RepoStore
	config       contract.StoreConfig
}

// Global Manager instance for main logic.
var (
	Manager   = &StoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetStore returns the initialized RepoStore, or nil before InitStore succeeds.
func (mgr *StoreManager) GetStore() contract.RepoStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.store
}

// GetConfig returns the configuration the store was opened with.
func (mgr *StoreManager) GetConfig() contract.StoreConfig {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.config
}

// InitStore opens the global store exactly once, even with concurrent calls.
func InitStore(ctx context.Context, sc contract.StoreConfig) error {
	var initErr error

	initOnce.Do(func() {
		store, err := Open(ctx, sc)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize repository store: %w", err)
			return
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.store = store
		Manager.config = sc
	})

	return initErr
}

// CloseStore should be called on application shutdown.
func CloseStore() { // called by cmd.Shutdown once the command returns
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.store != nil {
			_ = Manager.store.Close()
		}
	})
}
