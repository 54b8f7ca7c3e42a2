package main

import (
	"fmt"
	"os"

	"github.com/dukerupert/lifequest/internal/backup"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	backupPassphrase string
	restoreOut       string
)

func newBackupManager() *backup.Manager {
	b := cfg.Backup
	return backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  b.Endpoint,
			Bucket:    b.Bucket,
			Region:    b.Region,
			AccessKey: b.AccessKey,
			SecretKey: b.SecretKey,
		},
		Prefix: b.Prefix,
	}, db, logger.With("component", "backup"))
}

func passphrase() string {
	if backupPassphrase != "" {
		return backupPassphrase
	}
	return cfg.Backup.Passphrase
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Encrypted database snapshots in S3-compatible storage",
	Long: `Take, list, restore and prune encrypted snapshots of the database.

Snapshots are encrypted with AES-256-GCM under a key derived from the
passphrase (--passphrase or LIFEQUEST_BACKUP_PASSPHRASE). Storage is set
with LIFEQUEST_S3_ENDPOINT, LIFEQUEST_S3_BUCKET, LIFEQUEST_S3_REGION,
LIFEQUEST_S3_ACCESS_KEY and LIFEQUEST_S3_SECRET_KEY.`,
}

var backupRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Take a snapshot now",
	RunE: func(cmd *cobra.Command, args []string) error {
		obj, err := newBackupManager().Run(cmd.Context(), passphrase())
		if err != nil {
			return err
		}
		color.Green("✓ Uploaded %s (%s)", obj.Key, humanize.Bytes(uint64(obj.Size)))
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		objects, err := newBackupManager().List(cmd.Context())
		if err != nil {
			return err
		}
		if len(objects) == 0 {
			color.Yellow("No snapshots found")
			return nil
		}
		faint := color.New(color.Faint)
		for _, o := range objects {
			fmt.Printf("%-60s %10s  ", o.Key, humanize.Bytes(uint64(o.Size)))
			faint.Println(humanize.Time(o.CreatedAt))
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <key>",
	Short: "Download and decrypt a snapshot to a new file",
	Long: `Download, decrypt and integrity-check a snapshot, writing it to --out.

The live database is never touched: stop the server and move the restored
file over LIFEQUEST_DB_PATH yourself.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := restoreOut
		if out == "" {
			out = cfg.DBPath + ".restored"
		}
		if err := newBackupManager().Restore(cmd.Context(), args[0], passphrase(), out); err != nil {
			return err
		}
		color.Green("✓ Restored %s to %s", args[0], out)
		fmt.Fprintf(os.Stderr, "Stop the server, then replace %s with %s\n", cfg.DBPath, out)
		return nil
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete snapshots older than LIFEQUEST_BACKUP_RETENTION_DAYS",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Backup.Retention <= 0 {
			return fmt.Errorf("retention is disabled")
		}
		n, err := newBackupManager().Prune(cmd.Context(), cfg.Backup.Retention)
		if err != nil {
			return err
		}
		color.Green("✓ Removed %d snapshot(s)", n)
		return nil
	},
}

func init() {
	backupCmd.PersistentFlags().StringVar(&backupPassphrase, "passphrase", "", "encryption passphrase (default $LIFEQUEST_BACKUP_PASSPHRASE)")
	backupRestoreCmd.Flags().StringVar(&restoreOut, "out", "", "destination file (default <db path>.restored)")
	backupCmd.AddCommand(backupRunCmd, backupListCmd, backupRestoreCmd, backupPruneCmd)
	rootCmd.AddCommand(backupCmd)
}
