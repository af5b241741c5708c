package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/leeforge/imgpress/logging"
	"github.com/leeforge/imgpress/media/processor"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type compressOptions struct {
	name    string
	format  string
	quality string
	scale   int
	out     string
	zip     bool
	workers int
}

func newCompressCmd(env *cliEnv, root *rootOptions) *cobra.Command {
	opts := &compressOptions{}

	cmd := &cobra.Command{
		Use:   "compress FILE...",
		Short: "Compress local image files",
		Long: `Compress one or more JPEG, PNG or WebP files with the same settings.

A single file is written as {name}.{format}. Several files are written as
{name}_1.{format}, {name}_2.{format}, ... in argument order, or packed into
compressed_images.zip with --zip. Unset flags fall back to the pipeline
defaults in the config.

Examples:
  imgpress compress photo.png --format webp --quality good
  imgpress compress a.jpg b.jpg c.png --scale 50 --name trip --out dist
  imgpress compress *.png --zip`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompress(cmd, env, root, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.name, "name", "n", "", "output base name (default: first file name without extension)")
	f.StringVarP(&opts.format, "format", "f", "", "output format: JPEG, PNG or WEBP")
	f.StringVarP(&opts.quality, "quality", "q", "", "quality tier: Poor, Low, Medium, Good or High")
	f.IntVarP(&opts.scale, "scale", "s", 0, "scale in percent, 1-100")
	f.StringVarP(&opts.out, "out", "o", ".", "output directory")
	f.BoolVar(&opts.zip, "zip", false, "write one compressed_images.zip instead of separate files")
	f.IntVarP(&opts.workers, "workers", "w", 0, "images processed in parallel (default: pipeline.workers)")
	return cmd
}

func runCompress(cmd *cobra.Command, env *cliEnv, root *rootOptions, opts *compressOptions, files []string) error {
	app, _, err := env.loadConfig(root)
	if err != nil {
		return err
	}

	settings, err := app.Pipeline.DefaultSettings()
	if err != nil {
		return err
	}
	if err := opts.apply(cmd, &settings); err != nil {
		return err
	}

	logger := logging.NewLogger(app.Log)
	defer func() { _ = logger.Sync() }()

	pipelineOpts := []processor.Option{processor.WithLogger(logger)}
	if opts.workers > 0 {
		pipelineOpts = append(pipelineOpts, processor.WithWorkers(opts.workers))
	}
	pipeline, err := processor.NewFromConfig(app.Pipeline, pipelineOpts...)
	if err != nil {
		return err
	}

	inputs := make([]processor.Input, len(files))
	for i, path := range files {
		data, err := afero.ReadFile(env.fs, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		inputs[i] = processor.Input{Name: filepath.Base(path), Data: data}
	}

	if err := env.fs.MkdirAll(opts.out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	out := stdout(cmd)
	ctx := cmd.Context()

	if len(inputs) == 1 && !opts.zip {
		res, err := pipeline.TransformOne(ctx, inputs[0], settings)
		if err != nil {
			return fmt.Errorf("%s: %w", inputs[0].Name, err)
		}
		if err := env.write(opts.out, res.Filename, res.Data); err != nil {
			return err
		}
		printResult(out, inputs[0].Name, res)
		return nil
	}

	progress := processor.WithProgress(func(p processor.Progress) {
		fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", p.Completed+p.Failed, p.Total, inputs[p.Index].Name)
	})
	batch, err := pipeline.TransformBatch(ctx, inputs, settings, progress)
	if err != nil {
		var batchErr *processor.BatchError
		if errors.As(err, &batchErr) {
			for _, item := range batchErr.Items {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed: [%d] %s: %v\n", item.Index, item.Name, item.Err)
			}
		}
		return err
	}

	if opts.zip {
		archive, err := processor.PackageZip(batch)
		if err != nil {
			return err
		}
		if err := env.write(opts.out, processor.ArchiveName, archive); err != nil {
			return err
		}
	} else {
		for _, res := range batch.Items {
			if err := env.write(opts.out, res.Filename, res.Data); err != nil {
				return err
			}
		}
	}

	for i, res := range batch.Items {
		printResult(out, inputs[i].Name, res)
	}
	fmt.Fprintf(out, "%d images: %d -> %d bytes (%.1f%% smaller)\n",
		batch.Len(), batch.OriginalBytes, batch.CompressedBytes, batch.Ratio())
	return nil
}

// apply overrides settings with the flags the user set.
func (o *compressOptions) apply(cmd *cobra.Command, s *processor.Settings) error {
	flags := cmd.Flags()
	if flags.Changed("format") {
		format, err := processor.ParseFormat(o.format)
		if err != nil {
			return err
		}
		s.Format = format
	}
	if flags.Changed("quality") {
		quality, err := processor.ParseQualityTier(o.quality)
		if err != nil {
			return err
		}
		s.Quality = quality
	}
	if flags.Changed("scale") {
		s.Scale = o.scale
	}
	if flags.Changed("name") {
		s.BaseName = o.name
	}
	return s.Validate()
}

func (env *cliEnv) write(dir, name string, data []byte) error {
	path := filepath.Join(dir, name)
	if err := afero.WriteFile(env.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printResult(w io.Writer, source string, res *processor.Result) {
	fmt.Fprintf(w, "%s -> %s  %dx%d  %d -> %d bytes (%.1f%%)\n",
		source, res.Filename, res.Width, res.Height, res.OriginalSize, res.CompressedSize, res.Ratio())
}
