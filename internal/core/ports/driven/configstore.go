package driven

// ConfigStore holds the persisted settings of sercha-sync. Keys use dot
// notation matching the TOML tables, so [sync] max_documents is
// "sync.max_documents".
type ConfigStore interface {
	// Get returns the value stored under key.
	Get(key string) (any, bool)

	// Keys lists the stored keys in sorted order.
	Keys() []string

	// Set stores value under key and persists the settings.
	Set(key string, value any) error

	// Unset removes key and persists the settings. A missing key is not an error.
	Unset(key string) error

	// Path returns where the settings are persisted.
	Path() string
}
