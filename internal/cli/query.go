package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docrag/internal/adapter/cache"
	"docrag/internal/logging"
	"docrag/internal/port"
	"docrag/internal/usecase"
)

var (
	queryText string
	queryTopK int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Answer a question using the indexed documents",
	Long: `Answer a natural-language question: embed the query, retrieve the
nearest chunks, compose a context-grounded prompt and generate an
answer with source citations.

Note that a freshly ingested document may not be visible immediately;
remote indexes become consistent eventually, not synchronously.

Examples:
  docrag query -q "What color is the sky?"
  docrag query -q "How does ingestion work?" -k 10`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question to answer (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	log, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	index, closeIndex, err := buildIndex(ctx, cfg, rootDir, embedder.Dimension())
	if err != nil {
		return err
	}
	defer closeIndex()

	generator, err := buildLLM(cfg)
	if err != nil {
		return err
	}
	composer, err := usecase.NewComposer(cfg.Prompt.ContextBudget)
	if err != nil {
		return err
	}

	var retriever usecase.Retriever = usecase.NewRetrieveUseCase(embedder, index, cfg.Retrieve.MinScore, log)
	if cfg.Retrieve.CacheSize > 0 {
		queryCache := cache.NewQueryCache(cfg.Retrieve.CacheSize, time.Duration(cfg.Retrieve.CacheTTLSecs)*time.Second)
		retriever = cache.NewCachedRetriever(retriever, queryCache)
	}
	answerUC := usecase.NewAnswerUseCase(retriever, composer, generator,
		port.GenerateOptions{
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
		},
		cfg.Generation.FallbackUngrounded, log)

	k := queryTopK
	if k <= 0 {
		k = cfg.Retrieve.TopK
	}

	answer, err := answerUC.Answer(ctx, queryText, k)
	if err != nil {
		return err
	}

	if !answer.Grounded && answer.Text == "" {
		fmt.Println("No answer available: no relevant passages found in the index.")
		return nil
	}

	fmt.Println(answer.Text)

	if answer.Grounded {
		fmt.Println("\nSources:")
		for _, c := range answer.Citations {
			fmt.Printf("- %s (chunk %d)\n", c.Location, c.Ordinal)
		}
	} else {
		fmt.Println("\n(No supporting documents were found; this answer is not grounded in the index.)")
	}

	return nil
}
