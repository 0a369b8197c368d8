// Package repository persists problems, submissions and status
// records for the judge.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"

	appErr "codearena/pkg/errors"

	"codearena/internal/common/cache"
	"codearena/internal/common/storage"
	"codearena/internal/grade"
	"codearena/internal/judge/model"
)

const (
	problemCacheTTL      = 10 * time.Minute
	problemCacheEmptyTTL = 30 * time.Second
	maxTestDataBytes     = 64 << 20
)

// ProblemRepository reads problem metadata from MySQL and test data
// packages from object storage, with a cache in front of the metadata.
type ProblemRepository struct {
	db      *sql.DB
	cache   cache.Cache
	storage storage.ObjectStorage
	bucket  string
}

// NewProblemRepository wires the problem read path.
func NewProblemRepository(db *sql.DB, c cache.Cache, store storage.ObjectStorage, bucket string) *ProblemRepository {
	return &ProblemRepository{db: db, cache: c, storage: store, bucket: bucket}
}

func problemCacheKey(id int64) string {
	return fmt.Sprintf("problem:meta:%d", id)
}

// GetProblem returns a problem's judgeable metadata. Misses are cached
// briefly so unknown ids cannot stampede the database.
func (r *ProblemRepository) GetProblem(ctx context.Context, id int64) (*model.Problem, error) {
	if id <= 0 {
		return nil, appErr.ValidationError("problem_id", "required")
	}

	problem, err := cache.GetOrLoad(ctx, r.cache, problemCacheKey(id),
		problemCacheTTL, problemCacheEmptyTTL,
		func(p *model.Problem) bool { return p == nil },
		func(p *model.Problem) (string, error) {
			data, err := json.Marshal(p)
			return string(data), err
		},
		func(data string) (*model.Problem, error) {
			var p model.Problem
			if err := json.Unmarshal([]byte(data), &p); err != nil {
				return nil, err
			}
			return &p, nil
		},
		func(ctx context.Context) (*model.Problem, error) {
			return r.queryProblem(ctx, id)
		},
	)
	if err != nil {
		return nil, err
	}
	if problem == nil {
		return nil, appErr.Newf(appErr.ProblemNotFound, "problem %d not found", id)
	}
	return problem, nil
}

func (r *ProblemRepository) queryProblem(ctx context.Context, id int64) (*model.Problem, error) {
	const query = `SELECT id, title, points, time_limit_ms, memory_limit_mb, test_data_key
		FROM problems WHERE id = ?`

	var p model.Problem
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Points, &p.TimeLimitMs, &p.MemoryLimitMB, &p.TestDataKey,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "query problem %d failed", id)
	}
	return &p, nil
}

// LoadTestCases fetches and unpacks the problem's test data package, a
// gzip-compressed JSON array of input/expected pairs.
func (r *ProblemRepository) LoadTestCases(ctx context.Context, problem *model.Problem) ([]grade.TestCase, error) {
	if len(problem.TestCases) > 0 {
		return problem.TestCases, nil
	}
	if problem.TestDataKey == "" {
		return nil, appErr.Newf(appErr.TestDataMissing, "problem %d has no test data package", problem.ID)
	}

	obj, err := r.storage.GetObject(ctx, r.bucket, problem.TestDataKey)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.StorageError, "fetch test data %s failed", problem.TestDataKey)
	}
	defer obj.Close()

	gz, err := gzip.NewReader(io.LimitReader(obj, maxTestDataBytes))
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.StorageError, "test data %s is not a gzip package", problem.TestDataKey)
	}
	defer gz.Close()

	var cases []grade.TestCase
	if err := json.NewDecoder(gz).Decode(&cases); err != nil {
		return nil, appErr.Wrapf(err, appErr.StorageError, "decode test data %s failed", problem.TestDataKey)
	}
	if len(cases) == 0 {
		return nil, appErr.Newf(appErr.TestDataMissing, "test data package %s is empty", problem.TestDataKey)
	}
	return cases, nil
}

// PackTestCases serializes test cases into the package format used by
// LoadTestCases and uploads it.
func (r *ProblemRepository) PackTestCases(ctx context.Context, objectKey string, cases []grade.TestCase) error {
	if len(cases) == 0 {
		return appErr.New(appErr.TestDataMissing).WithMessage("cannot pack an empty test case list")
	}

	pr, pw := io.Pipe()
	go func() {
		gz := gzip.NewWriter(pw)
		err := json.NewEncoder(gz).Encode(cases)
		if cerr := gz.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	if err := r.storage.PutObject(ctx, r.bucket, objectKey, pr, -1, "application/gzip"); err != nil {
		return appErr.Wrapf(err, appErr.StorageError, "upload test data %s failed", objectKey)
	}
	return nil
}
