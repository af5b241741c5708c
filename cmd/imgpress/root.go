package main

import (
	"io"
	"os"

	"github.com/leeforge/imgpress/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// cliEnv is what commands touch outside the process: files and config.
type cliEnv struct {
	fs         afero.Fs
	configOpts func() config.ConfigOptions
}

func defaultEnv() *cliEnv {
	return &cliEnv{
		fs:         afero.NewOsFs(),
		configOpts: config.DefaultConfigOptions,
	}
}

type rootOptions struct {
	configPath string
	watch      bool
}

func newRootCmd(env *cliEnv) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "imgpress",
		Short: "Batch image recompression",
		Long: `imgpress decodes JPEG, PNG and WebP images, resizes them by a percentage
and re-encodes them as JPEG, PNG or WebP at a named quality tier.

Example usage:
  imgpress serve                                   # Run the HTTP API
  imgpress compress a.png b.jpg --format webp      # Compress local files
  imgpress compress *.png --zip --name holiday     # Write compressed_images.zip
  imgpress config                                  # Print the effective config`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config-path", "", "directory holding config*.yaml (default $CONFIG_PATH or ./configs)")

	root.AddCommand(
		newServeCmd(env, opts),
		newCompressCmd(env, opts),
		newConfigCmd(env, opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads configuration honouring --config-path.
func (env *cliEnv) loadConfig(opts *rootOptions, mutate ...func(*config.ConfigOptions)) (*config.AppConfig, *config.Config, error) {
	co := env.configOpts()
	if opts.configPath != "" {
		co.BasePath = opts.configPath
	}
	for _, m := range mutate {
		m(&co)
	}
	return config.Load(co)
}

func stdout(cmd *cobra.Command) io.Writer {
	if w := cmd.OutOrStdout(); w != nil {
		return w
	}
	return os.Stdout
}
