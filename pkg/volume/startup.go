package volume

import "os"

// StartupInfo is the result of the one-time environment probe performed
// during process initialization. It is computed before any volume is opened
// and never changes afterwards, even if the backing file is deleted while
// the process runs.
type StartupInfo struct {
	// NeedsReload is true iff the cache backing file already existed at
	// startup, signalling the caching engine should recover prior cache
	// metadata instead of cold-initializing.
	NeedsReload bool
}

// DetectStartup probes the cache backing file. Call it once at startup and
// pass the result down instead of re-probing.
func DetectStartup(cachePath string) StartupInfo {
	_, err := os.Stat(cachePath)

	return StartupInfo{
		NeedsReload: err == nil,
	}
}
