package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/patchbay/internal/config"
	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
)

// SnapshotOptions selects the snapshot store. --db and --redis take
// precedence over the config file.
type SnapshotOptions struct {
	*RootOptions
	ConfigPath string
	Database   string
	RedisAddr  string
}

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect and delete saved snapshots",
		Long: `Inspect the snapshots written by the save command.

Examples:
  patchbay snapshot list --db patchbay.db
  patchbay snapshot show --db patchbay.db live-set
  patchbay snapshot delete --redis 127.0.0.1:6379 old-set`,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config naming the store")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to a SQLite snapshot store")
	cmd.PersistentFlags().StringVar(&opts.RedisAddr, "redis", "", "address of a Redis snapshot store")

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List snapshots by name",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st snapshotBackend, f *OutputFormatter) error {
				return runSnapshotList(ctx, st, f)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <name>",
		Short:         "Print a snapshot's nodes and saved values",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st snapshotBackend, f *OutputFormatter) error {
				return runSnapshotShow(ctx, st, f, args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "delete <name>",
		Short:         "Delete a snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, cmd, func(ctx context.Context, st snapshotBackend, f *OutputFormatter) error {
				return runSnapshotDelete(ctx, st, f, args[0])
			})
		},
	})

	return cmd
}

func (o *SnapshotOptions) storeConfig() (config.Store, error) {
	switch {
	case o.Database != "" && o.RedisAddr != "":
		return config.Store{}, errors.New("--db and --redis are mutually exclusive")
	case o.Database != "":
		return config.Store{Driver: config.StoreSQLite, SQLitePath: o.Database}, nil
	case o.RedisAddr != "":
		st := config.Default().Store
		st.Driver = config.StoreRedis
		st.Redis.Addr = o.RedisAddr
		return st, nil
	}
	if o.ConfigPath == "" {
		return config.Store{}, errors.New("one of --db, --redis or --config is required")
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Store{}, err
	}
	return cfg.Store, nil
}

func withStore(opts *SnapshotOptions, cmd *cobra.Command, fn func(context.Context, snapshotBackend, *OutputFormatter) error) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	storeCfg, err := opts.storeConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "no snapshot store", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore(ctx, storeCfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open snapshot store", err)
	}
	if st == nil {
		return NewExitError(ExitCommandError, "store driver is none")
	}
	defer st.Close()

	return fn(ctx, st, formatter)
}

func runSnapshotList(ctx context.Context, st snapshotBackend, f *OutputFormatter) error {
	infos, err := st.ListSnapshots(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "list snapshots", err)
	}
	return f.Success(infos, func(w io.Writer) {
		if len(infos) == 0 {
			fmt.Fprintln(w, "No snapshots.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tNODES\tCREATED\tHASH")
		for _, info := range infos {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", info.Name, info.NodeCount, info.CreatedAt.Format(time.RFC3339), shortHash(info.Hash))
		}
		tw.Flush()
	})
}

func runSnapshotShow(ctx context.Context, st snapshotBackend, f *OutputFormatter, name string) error {
	snap, err := st.LoadSnapshot(ctx, name)
	if errors.Is(err, engine.ErrSnapshotNotFound) {
		return f.Fail(ExitFailure, "E_NOT_FOUND", fmt.Sprintf("snapshot %q not found", name), nil)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "load snapshot", err)
	}
	return f.Success(snap, func(w io.Writer) {
		writeSnapshotText(w, snap)
	})
}

func runSnapshotDelete(ctx context.Context, st snapshotBackend, f *OutputFormatter, name string) error {
	err := st.DeleteSnapshot(ctx, name)
	if errors.Is(err, engine.ErrSnapshotNotFound) {
		return f.Fail(ExitFailure, "E_NOT_FOUND", fmt.Sprintf("snapshot %q not found", name), nil)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "delete snapshot", err)
	}
	return f.Success(map[string]string{"deleted": name}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ deleted %s\n", name)
	})
}

func writeSnapshotText(w io.Writer, snap *ir.Snapshot) {
	fmt.Fprintf(w, "%s (%s)\n", snap.Name, snap.ID)
	fmt.Fprintf(w, "created: %s\n", snap.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "hash:    %s\n", snap.Hash)
	for _, n := range snap.Nodes {
		fmt.Fprintf(w, "%s [%s]\n", n.Path, n.ModuleID)
		names := make([]string, 0, len(n.Values))
		for name := range n.Values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s = %s\n", name, describeValue(n.Values[name].Value))
		}
	}
}

func describeValue(v ir.Value) string {
	if v == nil {
		return "<bang>"
	}
	if s, ok := v.(ir.String); ok {
		return fmt.Sprintf("%q", string(s))
	}
	return v.String()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
