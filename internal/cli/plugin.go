package cli

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/DeforaOS/libSystem/internal/plugin"
)

// PluginOptions holds the flags of pluginctl.
type PluginOptions struct {
	RootOptions
	Dirs    []string
	NoPaths bool
}

// NewPluginCommand creates the pluginctl root command.
func NewPluginCommand() *cobra.Command {
	opts := &PluginOptions{}

	cmd := &cobra.Command{
		Use:   "pluginctl",
		Short: "Resolve plugins and probe their symbols",
		Long: `Resolve plugin modules by name, open them and look up their symbols.

Directories given with -L are searched before the default search path.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringArrayVarP(&opts.Dirs, "dir", "L", nil, "search directory (repeatable)")
	cmd.PersistentFlags().BoolVar(&opts.NoPaths, "no-default-paths", false, "search only the -L directories")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newPluginResolveCommand(opts))
	cmd.AddCommand(newPluginListCommand(opts))
	cmd.AddCommand(newPluginLookupCommand(opts))
	cmd.AddCommand(newPluginCallCommand(opts))

	return cmd
}

func (o *PluginOptions) loader() *plugin.Loader {
	paths := append([]string(nil), o.Dirs...)
	if !o.NoPaths {
		paths = append(paths, plugin.DefaultPaths()...)
	}
	return plugin.NewLoader(plugin.WithPaths(paths...), plugin.WithLogger(o.Logger()))
}

func newPluginResolveCommand(opts *PluginOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve NAME...",
		Short: "Print the file each module would be opened from",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := opts.loader()
			for _, name := range args {
				path, err := l.Resolve(name)
				if err != nil {
					return commandError("", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
}

func newPluginListCommand(opts *PluginOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the modules found in the search path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mods, err := opts.loader().Discover()
			if err != nil {
				return commandError("", err)
			}
			w := cmd.OutOrStdout()
			for _, m := range mods {
				keyColor.Fprint(w, m.Name)
				fmt.Fprintf(w, "\t%s\n", m.Path)
			}
			return nil
		},
	}
}

func newPluginLookupCommand(opts *PluginOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup NAME SYMBOL...",
		Short: "Report which symbols a module exports",
		Long: `Open module NAME and look up every SYMBOL. The exit status is 1 if a
symbol is absent.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.loader().Open(args[0])
			if err != nil {
				return commandError("", err)
			}
			defer p.Close()

			w := cmd.OutOrStdout()
			absent := false
			for _, sym := range args[1:] {
				v, ok := p.Lookup(sym)
				if !ok {
					absent = true
					failColor.Fprint(w, "missing")
					fmt.Fprintf(w, "\t%s\n", sym)
					continue
				}
				okColor.Fprint(w, "found")
				fmt.Fprintf(w, "\t%s\t%s\n", sym, symbolType(v))
			}
			if absent {
				return errAbsent
			}
			return nil
		},
	}
}

func newPluginCallCommand(opts *PluginOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "call NAME SYMBOL [ARG...]",
		Short: "Call a Lua function and print its results as JSON",
		Long: `Open module NAME and call the Lua function SYMBOL. Arguments that parse
as numbers or booleans are passed as such, anything else as a string.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.loader().Open(args[0])
			if err != nil {
				return commandError("", err)
			}
			defer p.Close()

			sym, ok := p.Lookup(args[1])
			if !ok {
				return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("symbol %q not found", args[1])}
			}
			fn, ok := sym.(plugin.LuaFunc)
			if !ok {
				return commandError("", fmt.Errorf("symbol %q is a %s, not a Lua function", args[1], symbolType(sym)))
			}

			callArgs := make([]any, len(args)-2)
			for i, a := range args[2:] {
				callArgs[i] = parseArg(a)
			}
			results, err := fn(callArgs...)
			if err != nil {
				return commandError("call "+args[1], err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range results {
				if err := enc.Encode(r); err != nil {
					return commandError("", err)
				}
			}
			return nil
		},
	}
}

func parseArg(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func symbolType(v any) string {
	if _, ok := v.(plugin.LuaFunc); ok {
		return "lua function"
	}
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
