package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DeforaOS/libSystem/internal/config"
)

// ConfigOptions holds the flags of configctl.
type ConfigOptions struct {
	RootOptions
	File    string
	Quiet   bool
	Verbose bool
	Format  config.Format
}

// NewConfigCommand creates the configctl root command.
func NewConfigCommand() *cobra.Command {
	opts := &ConfigOptions{Format: config.FormatINI}

	cmd := &cobra.Command{
		Use:   "configctl",
		Short: "Query and modify configuration files",
		Long: `Query and modify key-file configuration files.

Variables are named [section.]key; a name without a section refers to the
default section at the top of the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.File == "" {
				return commandError("", errors.New("no configuration file given (use -f)"))
			}
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.File, "file", "f", "", "configuration file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newConfigGetCommand(opts))
	cmd.AddCommand(newConfigSetCommand(opts))
	cmd.AddCommand(newConfigUnsetCommand(opts))
	cmd.AddCommand(newConfigListCommand(opts))
	cmd.AddCommand(newConfigExportCommand(opts))
	cmd.AddCommand(newConfigImportCommand(opts))
	cmd.AddCommand(newConfigWatchCommand(opts))

	return cmd
}

// splitKey splits [section.]key at the first dot.
func splitKey(name string) (section, key string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return config.DefaultSection, name
}

// open loads the configuration file. A missing file yields an empty store
// when create is set.
func (o *ConfigOptions) open(create bool) (*config.Store, error) {
	store := config.New(config.WithLogger(o.Logger()))
	err := store.Load(o.File)
	switch {
	case err == nil:
	case create && errors.Is(err, fs.ErrNotExist):
		o.Logger().Debug("creating configuration file", "path", o.File)
	default:
		return nil, commandError("", err)
	}
	return store, nil
}

func (o *ConfigOptions) save(store *config.Store) error {
	if err := store.Save(o.File); err != nil {
		return commandError("", err)
	}
	return nil
}

func newConfigGetCommand(opts *ConfigOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [section.]key...",
		Short: "Print the value of variables",
		Long: `Print the value of variables, one per line.

Absent variables print nothing. With -q nothing is printed and the exit
status is 1 if any variable is absent.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Quiet && opts.Verbose {
				return commandError("", errors.New("-q and -v are mutually exclusive"))
			}
			store, err := opts.open(false)
			if err != nil {
				return err
			}

			absent := false
			for _, arg := range args {
				section, key := splitKey(arg)
				value, ok := store.Get(section, key)
				if !ok {
					absent = true
					continue
				}
				if !opts.Quiet {
					printEntry(cmd.OutOrStdout(), opts.Verbose, section, key, value)
				}
			}
			if absent && opts.Quiet {
				return errAbsent
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "print nothing, report absence in the exit status")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "print section.key=value")

	return cmd
}

func newConfigSetCommand(opts *ConfigOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set [section.]key=value...",
		Short: "Set variables and save the file",
		Long: `Set variables and save the file. The file is created if it does not
exist. Nothing is saved if any assignment is invalid.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.open(true)
			if err != nil {
				return err
			}

			for _, arg := range args {
				name, value, ok := strings.Cut(arg, "=")
				if !ok {
					return commandError("", fmt.Errorf("invalid assignment %q (want [section.]key=value)", arg))
				}
				section, key := splitKey(name)
				if err := store.Set(section, key, value); err != nil {
					return commandError(arg, err)
				}
				if opts.Verbose {
					printEntry(cmd.OutOrStdout(), true, section, key, value)
				}
			}
			return opts.save(store)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "print every assignment")

	return cmd
}

func newConfigUnsetCommand(opts *ConfigOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unset [section.]key...",
		Short: "Remove variables and save the file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.open(false)
			if err != nil {
				return err
			}

			changed := false
			for _, arg := range args {
				section, key := splitKey(arg)
				if store.Unset(section, key) {
					changed = true
				}
			}
			if !changed {
				return nil
			}
			return opts.save(store)
		},
	}
}

func newConfigListCommand(opts *ConfigOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every variable as section.key=value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.open(false)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			store.Foreach(func(section string) {
				store.ForeachSection(section, func(key, value string) {
					printEntry(w, true, section, key, value)
				})
			})
			return nil
		},
	}
}

func newConfigExportCommand(opts *ConfigOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the file to standard output in another format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.open(false)
			if err != nil {
				return err
			}
			if err := store.Export(cmd.OutOrStdout(), opts.Format); err != nil {
				return commandError("export", err)
			}
			return nil
		},
	}

	cmd.Flags().VarP(&opts.Format, "format", "F", "output format (ini|toml|yaml|json)")

	return cmd
}

func newConfigImportCommand(opts *ConfigOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import INPUT",
		Short: "Merge a file in another format into the configuration file",
		Long: `Merge INPUT into the configuration file and save it. INPUT "-" reads
standard input. The configuration file is created if it does not exist.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.open(true)
			if err != nil {
				return err
			}

			name := args[0]
			in := cmd.InOrStdin()
			if name != "-" {
				f, err := os.Open(name)
				if err != nil {
					return commandError("", err)
				}
				defer f.Close()
				in = f
			}

			if err := store.Import(name, in, opts.Format); err != nil {
				return commandError("import", err)
			}
			return opts.save(store)
		},
	}

	cmd.Flags().VarP(&opts.Format, "format", "F", "input format (ini|toml|yaml|json)")

	return cmd
}

func newConfigWatchCommand(opts *ConfigOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the file contents every time it changes",
		Long: `Print every variable of the file, then again after every change, until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.open(false)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			list := func() {
				store.Foreach(func(section string) {
					store.ForeachSection(section, func(key, value string) {
						printEntry(w, true, section, key, value)
					})
				})
			}

			watcher, err := config.NewWatcher(store, opts.File, config.WithWatcherLogger(opts.Logger()))
			if err != nil {
				return commandError("", err)
			}
			defer watcher.Close()

			// Callbacks run on the watcher goroutine; serialize output.
			events := make(chan string, 1)
			watcher.OnReload(func(path string) {
				select {
				case events <- path:
				default:
				}
			})
			watcher.OnError(func(err error) {
				failColor.Fprintf(cmd.ErrOrStderr(), "reload failed: %v\n", err)
			})
			if err := watcher.Start(); err != nil {
				return commandError("", err)
			}

			list()
			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case path := <-events:
					okColor.Fprintf(w, "# reloaded %s\n", path)
					list()
				}
			}
		},
	}

	return cmd
}
