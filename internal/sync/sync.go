package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gicmo/home-sync/internal/catalogue"
	"github.com/gicmo/home-sync/internal/rsync"
	"github.com/gicmo/home-sync/internal/ui"
)

// remoteSSHDir receives the staged authorized_keys file
const remoteSSHDir = "~/.ssh/"

// Engine mirrors path specifiers to one remote host, one at a time
type Engine struct {
	opts   Options
	client *rsync.Client
	out    *ui.Printer
	logger *slog.Logger
}

// NewEngine creates a new sync engine
func NewEngine(opts Options, client *rsync.Client, out *ui.Printer, logger *slog.Logger) *Engine {
	return &Engine{
		opts:   opts,
		client: client,
		out:    out,
		logger: logger,
	}
}

// Run announces the destination, provisions keyFile when given and then
// mirrors items in order. The first failed transfer aborts the run.
func (e *Engine) Run(ctx context.Context, keyFile string, items []catalogue.PathSpec) (Summary, error) {
	e.out.Target(e.opts.Remote)

	if keyFile != "" {
		if err := e.Authorize(ctx, keyFile); err != nil {
			return Summary{}, fmt.Errorf("failed to provision ssh key: %w", err)
		}
	}

	return e.Sync(ctx, items)
}

// Sync mirrors items in order. Missing local paths are skipped.
func (e *Engine) Sync(ctx context.Context, items []catalogue.PathSpec) (Summary, error) {
	var summary Summary

	e.logger.Info("starting sync",
		"remote", e.opts.Remote,
		"items", len(items),
		"delete", e.opts.Delete,
		"dry_run", e.opts.DryRun)

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		synced, err := e.syncItem(ctx, item)
		if err != nil {
			return summary, err
		}
		if synced {
			summary.Transferred++
		} else {
			summary.Skipped++
		}
	}

	return summary, nil
}

// syncItem mirrors one path. It reports false when the path was skipped.
func (e *Engine) syncItem(ctx context.Context, item catalogue.PathSpec) (bool, error) {
	local, err := item.Local()
	if err != nil {
		return false, err
	}

	info, err := os.Stat(local)
	if err != nil {
		if isNotExist(err) {
			e.out.Skipped(local)
			e.logger.Debug("skipping missing path", "path", local)
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", local, err)
	}

	if err := e.mirror(ctx, local, info.IsDir(), item.RemoteTarget(), e.opts.Delete); err != nil {
		return false, err
	}
	return true, nil
}

// mirror copies local to target. Directories are announced, created on the
// remote host first and sent with a trailing separator so their contents
// land in target.
func (e *Engine) mirror(ctx context.Context, local string, isDir bool, target string, del bool) error {
	source := local
	if isDir {
		e.out.Dir(local)
		if !e.opts.DryRun {
			e.ensureRemoteDir(ctx, target)
		}
		source = withTrailingSeparator(local)
	}

	t := rsync.Transfer{
		Source: source,
		Target: target,
		Delete: del,
		DryRun: e.opts.DryRun,
	}

	if t.DryRun {
		e.out.Command(rsync.FormatCommand(e.client.TransferArgs(t)))
		return nil
	}

	e.logger.Debug("transferring", "source", t.Source, "target", t.Target, "delete", t.Delete)
	if err := e.client.Transfer(ctx, t); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("transfer of %s interrupted: %w", local, ctxErr)
		}
		return err
	}
	return nil
}

// ensureRemoteDir creates target on the remote host. Failure is logged and
// otherwise ignored; the transfer reports its own problems.
func (e *Engine) ensureRemoteDir(ctx context.Context, target string) {
	if err := e.client.Mkdir(ctx, target); err != nil {
		e.logger.Warn("could not create remote directory", "target", target, "error", err)
	}
}

// Authorize installs the public key in keyFile as the remote user's
// authorized_keys. Existing remote keys are left alone: deletion is always
// off for this transfer. The local staging directory is removed before
// returning.
func (e *Engine) Authorize(ctx context.Context, keyFile string) error {
	keyPath, err := catalogue.ExpandHome(keyFile)
	if err != nil {
		return err
	}

	key, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to read public key: %w", err)
	}

	e.out.Key(keyPath)

	scratch, err := os.MkdirTemp("", "home-sync-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			e.logger.Warn("failed to remove staging directory", "path", scratch, "error", err)
		}
	}()

	sshDir, err := stageAuthorizedKeys(scratch, key)
	if err != nil {
		return err
	}

	e.logger.Debug("staged authorized_keys", "path", sshDir)
	return e.mirror(ctx, sshDir, true, remoteSSHDir, false)
}

// stageAuthorizedKeys writes dir/.ssh/authorized_keys with the modes ssh
// insists on and returns the .ssh directory.
func stageAuthorizedKeys(dir string, key []byte) (string, error) {
	sshDir := filepath.Join(dir, ".ssh")
	if err := os.Mkdir(sshDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", sshDir, err)
	}
	// the umask may have stripped bits from Mkdir
	if err := os.Chmod(sshDir, 0700); err != nil {
		return "", err
	}

	authorized := filepath.Join(sshDir, "authorized_keys")
	if err := os.WriteFile(authorized, key, 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", authorized, err)
	}
	if err := os.Chmod(authorized, 0600); err != nil {
		return "", err
	}

	return sshDir, nil
}

func withTrailingSeparator(path string) string {
	return strings.TrimRight(path, string(filepath.Separator)) + string(filepath.Separator)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
