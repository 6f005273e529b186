// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/review-insights/pkg/types"
)

// QueryOptions filters task drill-down queries.
type QueryOptions struct {
	// Query matches tasks whose text or original review contains it,
	// ignoring ASCII case.
	Query string

	// Categories restricts results to these categories.
	Categories []string

	// MinConfidence drops tasks below this confidence.
	MinConfidence float64

	// IncludeOther keeps tasks in the catch-all category.
	IncludeOther bool

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// likeEscaper escapes LIKE wildcards so Query matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Tasks returns tasks matching opts, highest confidence first.
func (s *Store) Tasks(ctx context.Context, opts QueryOptions) ([]types.Task, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT category, task, confidence, original_review FROM tasks WHERE confidence >= ?`)
	args = append(args, opts.MinConfidence)

	if !opts.IncludeOther {
		qb.WriteString(` AND lower(category) != ?`)
		args = append(args, types.CategoryOther)
	}
	if len(opts.Categories) > 0 {
		qb.WriteString(` AND category IN (` + placeholders(len(opts.Categories)) + `)`)
		for _, c := range opts.Categories {
			args = append(args, c)
		}
	}
	if opts.Query != "" {
		pattern := "%" + likeEscaper.Replace(opts.Query) + "%"
		qb.WriteString(` AND (task LIKE ? ESCAPE '\' OR original_review LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	qb.WriteString(` ORDER BY confidence DESC, rowid LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []types.Task
	for rows.Next() {
		var t types.Task
		if err := rows.Scan(&t.Category, &t.Task, &t.Confidence, &t.OriginalReview); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// Categories returns the category ranking. The catch-all category is
// left out unless includeOther is set.
func (s *Store) Categories(ctx context.Context, includeOther bool) ([]types.CategoryAggregate, error) {
	q := `SELECT category, count, avg_confidence, examples FROM categories`
	var args []any
	if !includeOther {
		q += ` WHERE lower(category) != ?`
		args = append(args, types.CategoryOther)
	}
	q += ` ORDER BY rank`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var aggs []types.CategoryAggregate
	for rows.Next() {
		var a types.CategoryAggregate
		if err := rows.Scan(&a.Category, &a.Count, &a.AvgConfidence, &a.Examples); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

// Overview is the dashboard headline computed from the snapshot.
type Overview struct {
	Reviews      int
	AvgSentiment float64
	Buckets      map[types.SentimentBucket]int
	Categories   int
	Tasks        int
}

// Overview computes headline figures over the whole snapshot.
func (s *Store) Overview(ctx context.Context) (Overview, error) {
	ov := Overview{Buckets: map[types.SentimentBucket]int{
		types.BucketNegative: 0,
		types.BucketMixed:    0,
		types.BucketPositive: 0,
	}}
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*), coalesce(avg(sentiment), 0) FROM reviews`,
	).Scan(&ov.Reviews, &ov.AvgSentiment); err != nil {
		return ov, fmt.Errorf("counting reviews: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT bucket, count(*) FROM reviews GROUP BY bucket`)
	if err != nil {
		return ov, fmt.Errorf("counting buckets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			bucket string
			n      int
		)
		if err := rows.Scan(&bucket, &n); err != nil {
			return ov, fmt.Errorf("scanning bucket: %w", err)
		}
		ov.Buckets[types.SentimentBucket(bucket)] = n
	}
	if err := rows.Err(); err != nil {
		return ov, err
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT count(DISTINCT category), count(*) FROM tasks`,
	).Scan(&ov.Categories, &ov.Tasks); err != nil {
		return ov, fmt.Errorf("counting tasks: %w", err)
	}
	return ov, nil
}
