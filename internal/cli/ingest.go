package cli

import (
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docrag/internal/domain"
	"docrag/internal/logging"
	"docrag/internal/usecase"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [patterns...]",
	Short: "Ingest documents into the vector index",
	Long: `Ingest documents matching the given location patterns: read each
document, chunk it, embed the chunks and upsert them into the vector
index. Without arguments the configured include patterns are used.

Re-ingesting is safe: records are keyed by deterministic chunk IDs, so
unchanged content is replaced, not duplicated.

Examples:
  docrag ingest                      # Use configured include patterns
  docrag ingest "docs/**/*.md"       # Ingest specific documents`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	log, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	src, err := buildSource(cfg, rootDir)
	if err != nil {
		return err
	}
	chk, err := buildChunker(cfg)
	if err != nil {
		return err
	}
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	index, closeIndex, err := buildIndex(ctx, cfg, rootDir, embedder.Dimension())
	if err != nil {
		return err
	}
	defer closeIndex()

	ingestUC := usecase.NewIngestUseCase(src, chk, embedder, index,
		cfg.Embedding.BatchSize, cfg.Embedding.Workers, log)

	patterns := args
	if len(patterns) == 0 {
		patterns = cfg.Source.Includes
	}

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Ingesting"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
			)
		}
		bar.Set(done)
	}

	report, err := ingestUC.Ingest(ctx, patterns, progress)
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	fmt.Printf("Ingested %d document(s), %d failed.\n", report.Succeeded, report.Failed)
	for _, d := range report.Failures() {
		var stageErr *domain.StageError
		if errors.As(d.Err, &stageErr) {
			fmt.Printf("  %s: stage %s failed (%d chunks already indexed): %v\n",
				d.Location, stageErr.Stage, len(d.Indexed), stageErr.Err)
		} else {
			fmt.Printf("  %s: %v\n", d.Location, d.Err)
		}
	}

	if report.Failed > 0 {
		return fmt.Errorf("%d document(s) failed to ingest", report.Failed)
	}
	return nil
}
