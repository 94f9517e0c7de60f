package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// IngestUseCase runs documents through the fetch -> chunk -> embed ->
// index stages. Documents are processed sequentially; embedding batches
// within one document run concurrently but are reassembled in chunk
// order before indexing.
type IngestUseCase struct {
	source    port.DocumentSource
	chunker   port.Chunker
	embedder  port.Embedder
	index     port.VectorIndex
	batchSize int
	workers   int
	log       *zap.Logger
}

// NewIngestUseCase creates an ingestion pipeline.
func NewIngestUseCase(
	source port.DocumentSource,
	chunker port.Chunker,
	embedder port.Embedder,
	index port.VectorIndex,
	batchSize int,
	workers int,
	log *zap.Logger,
) *IngestUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IngestUseCase{
		source:    source,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		batchSize: batchSize,
		workers:   workers,
		log:       log,
	}
}

// DocumentReport records the outcome of one document's ingestion.
// Indexed lists the chunk IDs that were durably upserted, whether or
// not the document as a whole succeeded; a partially ingested document
// is safe to re-ingest because upserts are idempotent by chunk ID.
type DocumentReport struct {
	Location string
	DocID    string
	Chunks   int
	Indexed  []string
	Err      error
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	RunID     string
	Documents []DocumentReport
	Succeeded int
	Failed    int
}

// Failures returns the reports of documents that did not fully ingest.
func (r *IngestReport) Failures() []DocumentReport {
	var failed []DocumentReport
	for _, d := range r.Documents {
		if d.Err != nil {
			failed = append(failed, d)
		}
	}
	return failed
}

// Ingest resolves the location patterns and ingests every document.
// Per-document failures are recorded in the report rather than aborting
// the run; the returned error is non-nil only when listing fails or the
// run is cancelled. Cancellation between documents leaves already
// indexed chunks in place.
func (u *IngestUseCase) Ingest(ctx context.Context, patterns []string, progress func(done, total int)) (*IngestReport, error) {
	locations, err := u.source.List(ctx, patterns)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	report := &IngestReport{RunID: uuid.NewString()}
	u.log.Info("ingestion started",
		zap.String("run_id", report.RunID),
		zap.Int("documents", len(locations)))

	for i, location := range locations {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		rep := u.ingestDocument(ctx, location)
		report.Documents = append(report.Documents, rep)
		if rep.Err != nil {
			report.Failed++
			u.log.Warn("document ingestion failed",
				zap.String("run_id", report.RunID),
				zap.String("location", location),
				zap.Int("indexed_chunks", len(rep.Indexed)),
				zap.Error(rep.Err))
		} else {
			report.Succeeded++
			u.log.Info("document ingested",
				zap.String("run_id", report.RunID),
				zap.String("location", location),
				zap.Int("chunks", rep.Chunks))
		}

		if progress != nil {
			progress(i+1, len(locations))
		}
	}

	return report, nil
}

// ingestDocument runs one document through all stages, reporting the
// failed stage and the chunks already indexed when something breaks.
func (u *IngestUseCase) ingestDocument(ctx context.Context, location string) DocumentReport {
	rep := DocumentReport{Location: location}

	text, err := u.source.Read(ctx, location)
	if err != nil {
		rep.Err = &domain.StageError{Stage: domain.StageFetch, Location: location, Err: err}
		return rep
	}

	doc := domain.Document{ID: documentID(location), Location: location, Text: text}
	rep.DocID = doc.ID

	chunks, err := u.chunker.Chunk(doc)
	if err != nil {
		rep.Err = &domain.StageError{Stage: domain.StageChunk, Location: location, Err: err}
		return rep
	}
	rep.Chunks = len(chunks)
	if len(chunks) == 0 {
		return rep
	}

	vectors, err := u.embedChunks(ctx, chunks)
	if err != nil {
		rep.Err = &domain.StageError{Stage: domain.StageEmbed, Location: location, Err: err}
		return rep
	}

	// Upsert in batches, tracking what is durably indexed as we go.
	for offset := 0; offset < len(chunks); offset += u.batchSize {
		end := offset + u.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		records := make([]port.Record, 0, end-offset)
		for i := offset; i < end; i++ {
			records = append(records, port.Record{
				ID:     chunks[i].ID,
				Vector: vectors[i],
				Metadata: map[string]string{
					port.MetaDocID:    doc.ID,
					port.MetaLocation: doc.Location,
					port.MetaOrdinal:  strconv.Itoa(chunks[i].Ordinal),
					port.MetaText:     chunks[i].Text,
				},
			})
		}

		if err := u.index.Upsert(ctx, records); err != nil {
			rep.Err = &domain.StageError{
				Stage:    domain.StageIndex,
				Location: location,
				Indexed:  rep.Indexed,
				Err:      err,
			}
			return rep
		}
		for i := offset; i < end; i++ {
			rep.Indexed = append(rep.Indexed, chunks[i].ID)
		}
	}

	return rep
}

// embedChunks embeds one document's chunks with a bounded worker pool.
// Each worker writes its batch into a disjoint slice range, so results
// land in original chunk order no matter how the batches are scheduled.
func (u *IngestUseCase) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)
	for offset := 0; offset < len(texts); offset += u.batchSize {
		offset := offset
		end := offset + u.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		g.Go(func() error {
			batch, err := u.embedder.Embed(gctx, texts[offset:end])
			if err != nil {
				return fmt.Errorf("embedding batch at offset %d: %w", offset, err)
			}
			copy(vectors[offset:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return vectors, nil
}

// documentID derives a stable identifier from the document location, so
// re-ingesting supersedes the previous records.
func documentID(location string) string {
	hash := sha256.Sum256([]byte(location))
	return hex.EncodeToString(hash[:8])
}
