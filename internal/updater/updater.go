// Package updater replaces the running blinkynode binary with the latest
// GitHub release, keeping one backup for rollback.
package updater

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/smazurov/blinkynode/internal/version"
)

// DefaultRepository is the release source used when none is configured.
const DefaultRepository = "smazurov/blinkynode"

// Options configures an Updater.
type Options struct {
	Repository string // GitHub slug, e.g. "smazurov/blinkynode"
	Prerelease bool
	BackupDir  string // defaults to ~/.cache/blinkynode/backup
	Logger     *slog.Logger
}

// Info describes the latest release relative to the running version.
type Info struct {
	CurrentVersion  string    `json:"current_version"`
	LatestVersion   string    `json:"latest_version"`
	ReleaseNotes    string    `json:"release_notes,omitempty"`
	ReleaseURL      string    `json:"release_url,omitempty"`
	PublishedAt     time.Time `json:"published_at"`
	AssetSize       int       `json:"asset_size,omitempty"`
	UpdateAvailable bool      `json:"update_available"`
}

// releaseSource is the subset of *selfupdate.Updater used here.
type releaseSource interface {
	DetectLatest(ctx context.Context, repository selfupdate.Repository) (*selfupdate.Release, bool, error)
	UpdateTo(ctx context.Context, rel *selfupdate.Release, cmdPath string) error
}

// Updater checks for, applies and rolls back binary updates.
type Updater struct {
	source  releaseSource
	repo    selfupdate.Repository
	backups *backupManager
	current string
	logger  *slog.Logger
}

// New creates an Updater backed by GitHub releases.
func New(opts Options) (*Updater, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	slug := opts.Repository
	if slug == "" {
		slug = DefaultRepository
	}

	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("create GitHub source: %w", err)
	}
	up, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: opts.Prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("create updater: %w", err)
	}

	backups, err := newBackupManager(opts.BackupDir, logger)
	if err != nil {
		logger.Warn("Backups disabled", "error", err)
	}

	return &Updater{
		source:  up,
		repo:    selfupdate.ParseSlug(slug),
		backups: backups,
		current: version.Version,
		logger:  logger,
	}, nil
}

// Check queries the latest release without downloading it.
func (u *Updater) Check(ctx context.Context) (*Info, error) {
	_, info, err := u.latest(ctx)
	return info, err
}

func (u *Updater) latest(ctx context.Context) (*selfupdate.Release, *Info, error) {
	release, found, err := u.source.DetectLatest(ctx, u.repo)
	if err != nil {
		return nil, nil, newError(ErrCodeCheckFailed, "failed to check for updates", err)
	}
	if !found {
		return nil, nil, newError(ErrCodeNotFound, "repository not found or has no releases", nil)
	}

	info := &Info{
		CurrentVersion: u.current,
		LatestVersion:  release.Version(),
		ReleaseNotes:   release.ReleaseNotes,
		ReleaseURL:     release.URL,
		PublishedAt:    release.PublishedAt,
		AssetSize:      release.AssetByteSize,
		// dev builds are always behind a tagged release
		UpdateAvailable: u.current == "dev" || release.GreaterThan(u.current),
	}
	return release, info, nil
}

// Apply backs up the running binary and replaces it with the latest
// release. The caller restarts the service afterwards.
func (u *Updater) Apply(ctx context.Context) (*Info, error) {
	release, info, err := u.latest(ctx)
	if err != nil {
		return nil, err
	}
	if !info.UpdateAvailable {
		return info, newError(ErrCodeNoUpdate, "already running "+info.CurrentVersion, nil)
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return nil, newError(ErrCodeApplyFailed, "failed to get executable path", err)
	}

	if u.backups != nil {
		if backupErr := u.backups.createBackup(exe, u.current); backupErr != nil {
			return nil, newError(ErrCodeBackupFailed, "failed to create backup", backupErr)
		}
	}

	if updateErr := u.source.UpdateTo(ctx, release, exe); updateErr != nil {
		u.restoreAfterFailure()
		return nil, newError(ErrCodeApplyFailed, "failed to apply update", updateErr)
	}

	u.logger.Info("Update applied", "from", u.current, "to", info.LatestVersion)
	return info, nil
}

// Rollback restores the binary saved by the last Apply.
func (u *Updater) Rollback() (string, error) {
	if u.backups == nil || !u.backups.hasBackup() {
		return "", newError(ErrCodeNoBackup, "no backup available for rollback", nil)
	}
	if err := u.backups.restore(); err != nil {
		return "", newError(ErrCodeRollbackFailed, "failed to restore backup", err)
	}
	return u.backups.backupVersion(), nil
}

// BackupVersion reports the version held in the backup, if any.
func (u *Updater) BackupVersion() string {
	if u.backups == nil {
		return ""
	}
	return u.backups.backupVersion()
}

func (u *Updater) restoreAfterFailure() {
	if u.backups == nil || !u.backups.hasBackup() {
		u.logger.Error("No backup available for automatic rollback")
		return
	}
	if err := u.backups.restore(); err != nil {
		u.logger.Error("Failed to restore backup", "error", err)
		return
	}
	u.logger.Info("Automatic rollback completed")
}
