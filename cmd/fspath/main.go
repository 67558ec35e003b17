package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ghyeongl/fspath/fspath"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fspath",
		Short: "Case-insensitive path resolution against a case-sensitive filesystem",
		Long: `fspath resolves client-supplied paths whose case may not match the
on-disk entries, the way a file server for a case-insensitive protocol
would. Useful for finding out which file a misbehaving client will
actually be served.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(resolveCmd())
	return cmd
}

func resolveCmd() *cobra.Command {
	var exact, verbose bool

	cmd := &cobra.Command{
		Use:   "resolve PATH...",
		Short: "Resolve paths to their on-disk casing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			v.SetEnvPrefix("FSPATH")
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			for _, name := range []string{"base", "cache-size", "log-dir"} {
				if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
					return fmt.Errorf("bind flag %s: %w", name, err)
				}
			}

			base := v.GetString("base")
			if base == "" {
				var err error
				if base, err = os.Getwd(); err != nil {
					return fmt.Errorf("determine base directory: %w", err)
				}
			}

			fspath.InitLogger(v.GetString("log-dir"))

			fsys := afero.NewOsFs()
			cache, err := fspath.NewCache(fsys, v.GetInt("cache-size"))
			if err != nil {
				return fmt.Errorf("create cache: %w", err)
			}
			r := fspath.NewResolver(fsys, cache)

			for _, p := range args {
				resolved := r.Resolve(base, []byte(p), !exact)
				state := "missing"
				if _, err := fsys.Stat(resolved); err == nil {
					state = "ok"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", resolved, state)
			}

			if verbose {
				st := cache.Stats()
				fmt.Fprintf(cmd.ErrOrStderr(),
					"cache: entries=%d hits=%d misses=%d stale=%d evictions=%d\n",
					cache.Len(), st.Hits, st.Misses, st.Stale, st.Evictions)
			}
			return nil
		},
	}

	cmd.Flags().String("base", "", "base directory to resolve under (default: current directory, env FSPATH_BASE)")
	cmd.Flags().Int("cache-size", fspath.DefaultCacheSize, "path cache capacity in entries (env FSPATH_CACHE_SIZE)")
	cmd.Flags().String("log-dir", "", "directory for debug logs (env FSPATH_LOG_DIR)")
	cmd.Flags().BoolVar(&exact, "exact", false, "disable case-insensitive matching, just join base and path")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print cache statistics after resolving")

	return cmd
}
