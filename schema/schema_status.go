package schema

// StoreStatus represents the status of the repository store.
type StoreStatus struct {
	Backend        string `json:"backend"`
	Connected      bool   `json:"connected"`
	Target         string `json:"target"` // Database and collection or table in use
	TotalEntries   int    `json:"total_entries"`
	CompiledCount  int    `json:"compiled_entries"`
	ClonedCount    int    `json:"cloned_entries"`
	TotalMakefiles int    `json:"total_makefiles"`
	TotalBinaries  int    `json:"total_binaries"`
}
