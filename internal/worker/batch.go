package worker

import (
	"context"
	"fmt"

	"github.com/ppiankov/patrace/internal/pipeline"
)

// CaseProcessor runs the extraction pipeline for one case file
type CaseProcessor interface {
	ProcessFile(ctx context.Context, path string) (*pipeline.CaseResult, error)
}

// CaseJob processes one case file
type CaseJob struct {
	Index     int
	Path      string
	Processor CaseProcessor
}

// Execute executes the case job
func (j *CaseJob) Execute(ctx context.Context) Result {
	result, err := j.Processor.ProcessFile(ctx, j.Path)
	return &CaseJobResult{
		Index:  j.Index,
		Path:   j.Path,
		Result: result,
		Error:  err,
	}
}

// CaseJobResult represents the result of a case job
type CaseJobResult struct {
	Index  int
	Path   string
	Result *pipeline.CaseResult
	Error  error
}

// GetError returns the error from the case job
func (r *CaseJobResult) GetError() error {
	return r.Error
}

// BatchProcessor processes multiple case files concurrently
type BatchProcessor struct {
	processor   CaseProcessor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor CaseProcessor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// ProcessFiles processes case files concurrently.
// Results are returned in the order of paths; a path whose job never ran
// because ctx was cancelled carries ctx's error.
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*CaseJobResult {
	if len(paths) == 0 {
		return []*CaseJobResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, path := range paths {
		job := &CaseJob{
			Index:     i,
			Path:      path,
			Processor: b.processor,
		}
		if !pool.Submit(job) {
			break
		}
	}

	results := pool.Wait()

	ordered := make([]*CaseJobResult, len(paths))
	for _, result := range results {
		r := result.(*CaseJobResult)
		ordered[r.Index] = r
	}
	for i, r := range ordered {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			ordered[i] = &CaseJobResult{Index: i, Path: paths[i], Error: err}
		}
	}

	return ordered
}

// ProcessDir processes every case_*.json file in dir
func (b *BatchProcessor) ProcessDir(ctx context.Context, dir string) ([]*CaseJobResult, error) {
	paths, err := pipeline.ListCases(dir)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}

	return b.ProcessFiles(ctx, paths), nil
}
