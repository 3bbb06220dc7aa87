package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"

	"github.com/minio/selfupdate"
	"github.com/spf13/cobra"

	"github.com/runpod/flash/internal/output"
	"github.com/runpod/flash/internal/version"
)

const (
	releaseOwner = "runpod"
	releaseRepo  = "flash"
)

var updateShowVersion bool

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for and install the latest flash release",
	Long: `Check GitHub Releases for a newer flash build and, if one is
available, download and install it in place.

Pass -V/--version to print the current version and exit without
checking for updates.`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVarP(&updateShowVersion, "version", "V", false, "print current version and exit")
	rootCmd.AddCommand(updateCmd)
}

type githubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

func runUpdate(cmd *cobra.Command, args []string) error {
	if updateShowVersion {
		output.Println(version.String())
		return nil
	}

	output.Printf("Current version: %s", version.Version)

	release, err := fetchLatestRelease()
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}

	currentClean := strings.TrimPrefix(version.Version, "v")
	latestClean := strings.TrimPrefix(release.TagName, "v")

	if currentClean == latestClean {
		output.Success("Already up to date (%s).", version.Version)
		return nil
	}

	if isDowngrade(currentClean, latestClean) {
		output.Warning("Latest release %s is older than the installed %s; skipping.", release.TagName, version.Version)
		return nil
	}

	output.Printf("Latest version:  %s", release.TagName)

	binaryName := fmt.Sprintf("flash-%s-%s", runtime.GOOS, runtime.GOARCH)
	var downloadURL string
	for _, asset := range release.Assets {
		if asset.Name == binaryName {
			downloadURL = asset.BrowserDownloadURL
			break
		}
	}
	if downloadURL == "" {
		return fmt.Errorf("no release binary published for %s/%s", runtime.GOOS, runtime.GOARCH)
	}

	output.Printf("Downloading %s...", binaryName)
	resp, err := http.Get(downloadURL)
	if err != nil {
		return fmt.Errorf("failed to download release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	if err := selfupdate.Apply(resp.Body, selfupdate.Options{}); err != nil {
		if rerr := selfupdate.RollbackError(err); rerr != nil {
			return fmt.Errorf("update failed and rollback also failed: %w", rerr)
		}
		return fmt.Errorf("update failed: %w", err)
	}

	output.Success("Updated to %s.", release.TagName)
	output.Printf("Release notes: %s", release.HTMLURL)
	return nil
}

// isDowngrade compares dotted segments numerically (falling back to a
// lexical comparison for a non-numeric segment); release tags for
// flash always follow MAJOR.MINOR.PATCH so this is sufficient without
// pulling in a semver library the teacher pack doesn't otherwise use.
func isDowngrade(current, latest string) bool {
	cp := strings.Split(current, ".")
	lp := strings.Split(latest, ".")
	for i := 0; i < len(cp) && i < len(lp); i++ {
		if lp[i] != cp[i] {
			ln, lerr := strconv.Atoi(lp[i])
			cn, cerr := strconv.Atoi(cp[i])
			if lerr == nil && cerr == nil {
				return ln < cn
			}
			return lp[i] < cp[i]
		}
	}
	return false
}

func fetchLatestRelease() (*githubRelease, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", releaseOwner, releaseRepo)

	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, err
	}
	return &release, nil
}
