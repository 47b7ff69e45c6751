package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/smazurov/blinkynode/internal/logging"
	"github.com/smazurov/blinkynode/internal/systemd"
	"github.com/smazurov/blinkynode/internal/updater"
	"github.com/spf13/cobra"
)

// CreateUpdateCmd creates the update command.
func CreateUpdateCmd() *cobra.Command {
	var repository string
	var prerelease bool
	var checkOnly bool
	var rollback bool
	var restart bool
	var userUnit bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update blinkynode to the latest release",
		Long: `Downloads the latest GitHub release and replaces the running binary. ` +
			`The previous binary is kept for --rollback.`,
		Example: `  blinkynode update --check
  sudo blinkynode update --restart
  sudo blinkynode update --rollback --restart`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			logging.Initialize(logging.Config{Level: "info", Format: "text"})

			up, err := updater.New(updater.Options{
				Repository: repository,
				Prerelease: prerelease,
				Logger:     logging.GetLogger("updater"),
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Context(), timeout)
			defer cancel()
			out := c.OutOrStdout()

			switch {
			case rollback:
				restored, rollbackErr := up.Rollback()
				if rollbackErr != nil {
					return rollbackErr
				}
				fmt.Fprintf(out, "Restored %s\n", restored)
			case checkOnly:
				info, checkErr := up.Check(ctx)
				if checkErr != nil {
					return checkErr
				}
				printUpdateInfo(out, info)
				return nil
			default:
				info, applyErr := up.Apply(ctx)
				if updater.HasCode(applyErr, updater.ErrCodeNoUpdate) {
					printUpdateInfo(out, info)
					return nil
				}
				if applyErr != nil {
					return applyErr
				}
				fmt.Fprintf(out, "Updated %s -> %s\n", info.CurrentVersion, info.LatestVersion)
			}

			if !restart {
				fmt.Fprintf(out, "Restart %s to run the new binary\n", systemd.ServiceName)
				return nil
			}
			return restartService(ctx, out, userUnit)
		},
	}

	cmd.Flags().StringVar(&repository, "repo", updater.DefaultRepository, "GitHub repository to fetch releases from")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Include prereleases")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report whether an update is available")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Restore the binary replaced by the last update")
	cmd.Flags().BoolVar(&restart, "restart", false, "Restart the systemd unit afterwards")
	cmd.Flags().BoolVar(&userUnit, "user", false, "Talk to the user systemd instance")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall time limit")
	cmd.MarkFlagsMutuallyExclusive("check", "rollback")

	return cmd
}

func restartService(ctx context.Context, out io.Writer, user bool) error {
	mgr, err := systemd.NewManager(ctx, systemd.ServiceName, user)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if err := mgr.Restart(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "Restarted %s\n", mgr.Service())
	return nil
}

func printUpdateInfo(w io.Writer, info *updater.Info) {
	if info == nil {
		return
	}
	fmt.Fprintf(w, "current: %s\n", info.CurrentVersion)
	fmt.Fprintf(w, "latest:  %s\n", info.LatestVersion)
	if !info.UpdateAvailable {
		fmt.Fprintln(w, "up to date")
		return
	}
	if !info.PublishedAt.IsZero() {
		fmt.Fprintf(w, "published: %s\n", info.PublishedAt.Format(time.DateOnly))
	}
	if info.ReleaseURL != "" {
		fmt.Fprintf(w, "release: %s\n", info.ReleaseURL)
	}
}
