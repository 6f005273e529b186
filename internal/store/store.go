// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store keeps a SQLite snapshot of the analysis tables for
// drill-down queries: scored reviews, accepted tasks and the category
// ranking, plus a log of ingest runs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/review-insights/internal/insights"
	"github.com/pdiddy/review-insights/internal/sentiment"
	"github.com/pdiddy/review-insights/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "insights.db"

	defaultMaxResults = 20
)

// Store manages the insights SQLite database.
type Store struct {
	db          *sql.DB
	analysisDir string
	maxResults  int
}

// Open opens or creates analysisDir/index/insights.db and its schema.
func Open(cfg types.StoreConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.AnalysisDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dbDir, dbFile)+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	s := &Store{db: db, analysisDir: cfg.AnalysisDir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return filepath.Join(s.analysisDir, indexDir, dbFile)
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			reviews INTEGER NOT NULL,
			tasks INTEGER NOT NULL,
			categories INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reviews (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			review_id TEXT,
			review TEXT NOT NULL,
			voted_up INTEGER,
			sentiment REAL NOT NULL,
			bucket TEXT NOT NULL,
			votes_up INTEGER,
			votes_funny INTEGER,
			playtime_forever INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_bucket ON reviews(bucket)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			category TEXT NOT NULL,
			task TEXT NOT NULL,
			confidence REAL NOT NULL,
			original_review TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(category)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_confidence ON tasks(confidence)`,
		`CREATE TABLE IF NOT EXISTS categories (
			category TEXT PRIMARY KEY,
			rank INTEGER NOT NULL,
			count INTEGER NOT NULL,
			avg_confidence REAL NOT NULL,
			examples TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from an ingest run.
type IngestSummary struct {
	RunID      string
	Reviews    int
	Tasks      int
	Categories int
}

// Ingest replaces the snapshot with the current contents of
// sentiment_results.csv, task_examples.csv and insights_aggregate.csv in
// one transaction, and records the run.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	rows, err := sentiment.ReadCSV(filepath.Join(s.analysisDir, sentiment.ResultsFile))
	if err != nil {
		return IngestSummary{}, err
	}
	tasks, err := insights.ReadTasksCSV(filepath.Join(s.analysisDir, insights.TasksFile))
	if err != nil {
		return IngestSummary{}, err
	}
	aggs, err := insights.ReadAggregateCSV(filepath.Join(s.analysisDir, insights.AggregateFile))
	if err != nil {
		return IngestSummary{}, err
	}
	insights.SortAggregates(aggs)

	summary := IngestSummary{
		RunID:      uuid.NewString(),
		Reviews:    len(rows),
		Tasks:      len(tasks),
		Categories: len(aggs),
	}
	if err := s.replace(ctx, summary, rows, tasks, aggs); err != nil {
		return IngestSummary{}, err
	}

	fmt.Fprintf(w, "ingested run %s: %d reviews, %d tasks, %d categories\n",
		summary.RunID, summary.Reviews, summary.Tasks, summary.Categories)
	return summary, nil
}

func (s *Store) replace(ctx context.Context, sum IngestSummary, rows []types.ScoredReview, tasks []types.Task, aggs []types.CategoryAggregate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"reviews", "tasks", "categories"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	reviewStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reviews (review_id, review, voted_up, sentiment, bucket, votes_up, votes_funny, playtime_forever)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing review insert: %w", err)
	}
	defer reviewStmt.Close()
	for _, r := range rows {
		if _, err := reviewStmt.ExecContext(ctx,
			r.ReviewID, r.Review, r.VotedUp, r.Sentiment, string(r.Bucket()),
			r.VotesUp, r.VotesFunny, r.PlaytimeForever,
		); err != nil {
			return fmt.Errorf("inserting review %s: %w", r.ReviewID, err)
		}
	}

	taskStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tasks (category, task, confidence, original_review) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing task insert: %w", err)
	}
	defer taskStmt.Close()
	for _, t := range tasks {
		if _, err := taskStmt.ExecContext(ctx, t.Category, t.Task, t.Confidence, t.OriginalReview); err != nil {
			return fmt.Errorf("inserting task %q: %w", t.Task, err)
		}
	}

	catStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO categories (category, rank, count, avg_confidence, examples) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing category insert: %w", err)
	}
	defer catStmt.Close()
	for i, a := range aggs {
		if _, err := catStmt.ExecContext(ctx, a.Category, i+1, a.Count, a.AvgConfidence, a.Examples); err != nil {
			return fmt.Errorf("inserting category %s: %w", a.Category, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, reviews, tasks, categories) VALUES (?, ?, ?, ?, ?)`,
		sum.RunID, time.Now().UTC().Format(time.RFC3339), sum.Reviews, sum.Tasks, sum.Categories,
	); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	return tx.Commit()
}

// Run is one recorded ingest.
type Run struct {
	ID         string
	CreatedAt  time.Time
	Reviews    int
	Tasks      int
	Categories int
}

// Runs returns the recorded ingests, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, reviews, tasks, categories FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			created string
		)
		if err := rows.Scan(&r.ID, &created, &r.Reviews, &r.Tasks, &r.Categories); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, created)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
