package record

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
)

type Config struct {
	DSN          string `envconfig:"DSN" split_words:"true" required:"true"`
	MaxOpenConns int    `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"4"`
}

type learningRecordRow struct {
	bun.BaseModel `bun:"table:learning_records,alias:lr"`

	ID                    int64     `bun:"id,pk,autoincrement"`
	YouLearned            string    `bun:"you_learned,notnull"`
	YourOutput            string    `bun:"your_output,notnull"`
	Feedback              string    `bun:"feedback,notnull"`
	AfterThoughtQuestions string    `bun:"after_thought_questions,notnull"`
	Tags                  []string  `bun:"tags,array"`
	CreatedAt             time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt             time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// PostgresStore persists learning records in Postgres via bun.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(cfg Config) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", contractx.ErrValidation)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &PostgresStore{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// ListBetween returns records created in [from, to], oldest first.
func (s *PostgresStore) ListBetween(ctx context.Context, from, to time.Time) ([]contractx.LearningRecord, error) {
	var rows []learningRecordRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("lr.created_at >= ?", from).
		Where("lr.created_at <= ?", to).
		Order("lr.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list learning records: %w", err)
	}

	records := make([]contractx.LearningRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, toRecord(row))
	}
	return records, nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec contractx.LearningRecord) error {
	row := fromRecord(rec)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert learning record: %w", err)
	}
	return nil
}

func toRecord(row learningRecordRow) contractx.LearningRecord {
	return contractx.LearningRecord{
		YouLearned:            row.YouLearned,
		YourOutput:            row.YourOutput,
		Feedback:              row.Feedback,
		AfterThoughtQuestions: row.AfterThoughtQuestions,
		Tags:                  row.Tags,
		CreatedAt:             row.CreatedAt,
	}
}

func fromRecord(rec contractx.LearningRecord) learningRecordRow {
	return learningRecordRow{
		YouLearned:            rec.YouLearned,
		YourOutput:            rec.YourOutput,
		Feedback:              rec.Feedback,
		AfterThoughtQuestions: rec.AfterThoughtQuestions,
		Tags:                  rec.Tags,
		CreatedAt:             rec.CreatedAt,
	}
}
