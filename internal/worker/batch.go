package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/uscensus/internal/table"
)

// BatchFetcher fetches one batch of variable codes as a raw result table
type BatchFetcher interface {
	FetchBatch(ctx context.Context, codes []string) (*table.Table, error)
}

// BatchJob fetches one batch
type BatchJob struct {
	Codes   []string
	Fetcher BatchFetcher
}

// Execute executes the batch job
func (j *BatchJob) Execute(ctx context.Context) Result {
	t, err := j.Fetcher.FetchBatch(ctx, j.Codes)
	return &BatchResult{
		Codes: j.Codes,
		Table: t,
		Error: err,
	}
}

// BatchResult is the outcome of one batch
type BatchResult struct {
	Codes []string
	Table *table.Table
	Error error
}

// GetError returns the error from the batch result
func (r *BatchResult) GetError() error {
	return r.Error
}

// BatchProcessor fetches batches concurrently
type BatchProcessor struct {
	fetcher     BatchFetcher
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(fetcher BatchFetcher, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		fetcher:     fetcher,
		concurrency: concurrency,
	}
}

// Process fetches every batch and returns the results in batch order
func (b *BatchProcessor) Process(ctx context.Context, batches [][]string) []*BatchResult {
	if len(batches) == 0 {
		return []*BatchResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, codes := range batches {
		pool.Submit(&BatchJob{
			Codes:   codes,
			Fetcher: b.fetcher,
		})
	}

	results := pool.Wait()

	out := make([]*BatchResult, len(results))
	for i, result := range results {
		if br, ok := result.(*BatchResult); ok {
			out[i] = br
			continue
		}
		out[i] = &BatchResult{Codes: batches[i], Error: result.GetError()}
	}

	return out
}

// Partition splits values into consecutive batches of at most size elements
func Partition(values []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var batches [][]string
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		batches = append(batches, values[start:end])
	}
	return batches
}

// ReadLinesFromFile reads values from a file (one per line), skipping blanks,
// comments and duplicates
func ReadLinesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return lines, nil
}
