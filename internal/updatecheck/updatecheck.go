// Package updatecheck implements the Update Checker (C18): a background,
// best-effort check for a newer flash release, gated by a 24h per-user
// cache file, that prints a single notice line at process exit if a
// newer version was found (spec §4.18).
package updatecheck

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/runpod/flash/internal/config"
	"github.com/runpod/flash/internal/util"
)

const (
	// cacheTTL is how long a cached "latest version" result is trusted
	// before a fresh registry query is attempted.
	cacheTTL = 24 * time.Hour

	releaseOwner = "runpod"
	releaseRepo  = "flash"
)

// cacheFile is the on-disk shape of the update-check cache.
type cacheFile struct {
	LastCheckedAt time.Time `json:"last_checked_at"`
	LatestVersion string    `json:"latest_version"`
}

var (
	mu            sync.Mutex
	latestVersion string
	checkInFlight chan struct{}
)

// shouldSkip reports whether the background check should not run at all:
// CI environments and an explicit opt-out both disable it (spec §4.18).
func shouldSkip() bool {
	if os.Getenv("CI") != "" {
		return true
	}
	if os.Getenv("FLASH_NO_UPDATE_CHECK") != "" {
		return true
	}
	return false
}

// StartBackground spawns the update check as a detached goroutine (the
// Go analogue of the reference system's daemon thread). currentVersion
// is compared against whatever version the check resolves, cached or
// fresh. All errors are swallowed; this function never blocks past
// spawning the goroutine.
func StartBackground(currentVersion string) {
	if shouldSkip() {
		return
	}

	mu.Lock()
	if checkInFlight != nil {
		mu.Unlock()
		return
	}
	done := make(chan struct{})
	checkInFlight = done
	mu.Unlock()

	go func() {
		defer close(done)
		runCheck(currentVersion)
	}()
}

func runCheck(currentVersion string) {
	defer func() {
		// A malformed response or panic-worthy bug in this best-effort
		// path must never bring down the CLI (spec §7 "Update Checker
		// never raises").
		recover()
	}()

	paths, err := config.GetPaths(".")
	if err != nil {
		return
	}
	if err := paths.EnsureConfigDir(); err != nil {
		return
	}

	cached, ok := loadCache(paths.UpdateCacheFile)
	if ok && time.Since(cached.LastCheckedAt) < cacheTTL {
		recordIfNewer(cached.LatestVersion, currentVersion)
		return
	}

	latest, err := fetchLatestVersion()
	if err != nil {
		util.Debug("update check: failed to query release registry: %v", err)
		return
	}

	saveCache(paths.UpdateCacheFile, cacheFile{LastCheckedAt: time.Now(), LatestVersion: latest})
	recordIfNewer(latest, currentVersion)
}

func recordIfNewer(candidate, current string) {
	if candidate == "" || candidate == current {
		return
	}
	cur := strings.Split(strings.TrimPrefix(current, "v"), ".")
	cand := strings.Split(strings.TrimPrefix(candidate, "v"), ".")
	for i := 0; i < len(cur) && i < len(cand); i++ {
		c, cerr := strconv.Atoi(cur[i])
		n, nerr := strconv.Atoi(cand[i])
		if cerr != nil || nerr != nil || n == c {
			continue
		}
		if n < c {
			return
		}
		break
	}
	mu.Lock()
	latestVersion = candidate
	mu.Unlock()
}

// PrintNoticeIfAny prints one line to stderr if the background check
// (if it completed in time) found a version newer than the one running.
// Called once, at process exit, via `defer` in cli.Execute. Never blocks
// on an in-flight check: a check that hasn't finished by exit simply
// prints nothing this run.
func PrintNoticeIfAny() {
	mu.Lock()
	v := latestVersion
	mu.Unlock()
	if v == "" {
		return
	}
	fmt.Fprintf(os.Stderr, "a newer version of flash is available: %s (run `flash update`)\n", v)
}

func loadCache(path string) (cacheFile, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cacheFile{}, false
	}
	var c cacheFile
	if err := json.Unmarshal(data, &c); err != nil {
		// Corruption is treated as a cold cache (spec §5 "corruption is
		// ignored").
		return cacheFile{}, false
	}
	return c, true
}

func saveCache(path string, c cacheFile) {
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0o644)
}

type githubRelease struct {
	TagName string `json:"tag_name"`
}

// fetchLatestVersion queries the package registry (GitHub Releases, the
// same source `flash update` installs from) for the newest tag.
func fetchLatestVersion() (string, error) {
	client := &http.Client{Timeout: 4 * time.Second}
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", releaseOwner, releaseRepo)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("release registry returned HTTP %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}
	return release.TagName, nil
}
