package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xaenox/lisa-bot/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// sqlStorage implements Storage on top of database/sql. Queries are written
// with ? placeholders and rebound for the target driver.
type sqlStorage struct {
	db       *sql.DB
	dialect  string
	numbered bool
	// lower names the SQL function used for case-insensitive search.
	lower    string
	logger   *zap.Logger
}

const exampleColumns = `id, example_code, language, description, tags, rating`

func newSQLStorage(db *sql.DB, dialect string, numbered bool, logger *zap.Logger) (*sqlStorage, error) {
	s := &sqlStorage{
		db:       db,
		dialect:  dialect,
		numbered: numbered,
		lower:    "LOWER",
		logger:   logger.Named("storage").With(zap.String("dialect", dialect)),
	}

	if err := s.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return s, nil
}

func (s *sqlStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations/" + s.dialect + ".sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	for _, stmt := range strings.Split(string(migrationSQL), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("error executing migrations: %w", err)
		}
	}

	s.logger.Debug("Schema initialized")
	return nil
}

// rebind turns ? placeholders into $1..$n for drivers that need them.
func (s *sqlStorage) rebind(query string) string {
	if !s.numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStorage) CreateExample(ctx context.Context, example *models.Example) error {
	if err := validateExample(example); err != nil {
		return err
	}

	query := s.rebind(`
		INSERT INTO learning_data (example_code, language, description, tags, rating)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	err := s.db.QueryRowContext(ctx, query,
		example.Code,
		example.Language,
		example.Description,
		example.Tags,
		nullRating(example.Rating),
	).Scan(&example.ID)
	if err != nil {
		return fmt.Errorf("error creating example: %w", err)
	}

	return nil
}

func (s *sqlStorage) GetExample(ctx context.Context, id int64) (*models.Example, error) {
	query := s.rebind(`SELECT ` + exampleColumns + ` FROM learning_data WHERE id = ?`)

	example, err := scanExample(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting example: %w", err)
	}
	return example, nil
}

func (s *sqlStorage) SearchExamples(ctx context.Context, tokens []string) ([]*models.Example, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	clauses := make([]string, 0, len(tokens))
	args := make([]any, 0, len(tokens)*3)
	for _, token := range tokens {
		clauses = append(clauses, fmt.Sprintf(
			`%[1]s(example_code) LIKE ? ESCAPE '\' OR %[1]s(description) LIKE ? ESCAPE '\' OR %[1]s(tags) LIKE ? ESCAPE '\'`,
			s.lower))
		pattern := "%" + escapeLike(strings.ToLower(token)) + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query := s.rebind(`SELECT ` + exampleColumns + ` FROM learning_data WHERE ` +
		strings.Join(clauses, " OR ") + ` ORDER BY id`)

	return s.queryExamples(ctx, query, args...)
}

func (s *sqlStorage) UpdateExampleRating(ctx context.Context, id int64, rating int) error {
	query := s.rebind(`UPDATE learning_data SET rating = ? WHERE id = ?`)

	result, err := s.db.ExecContext(ctx, query, rating, id)
	if err != nil {
		return fmt.Errorf("error updating example rating: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *sqlStorage) ListExamplesByTag(ctx context.Context, tag string) ([]*models.Example, error) {
	query := s.rebind(`SELECT ` + exampleColumns + ` FROM learning_data
		WHERE tags LIKE ? ESCAPE '\' ORDER BY id`)

	return s.queryExamples(ctx, query, "%"+escapeLike(tag)+"%")
}

func (s *sqlStorage) ListTrainingExamples(ctx context.Context) ([]*models.Example, error) {
	query := `SELECT ` + exampleColumns + ` FROM learning_data
		WHERE description IS NOT NULL AND description <> ''
		AND example_code IS NOT NULL AND example_code <> ''
		AND rating >= 0
		ORDER BY id`

	return s.queryExamples(ctx, query)
}

func (s *sqlStorage) CreateInteraction(ctx context.Context, interaction *models.Interaction) error {
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}

	query := s.rebind(`
		INSERT INTO messages (user_message, system_response, learning_data_id, created_at_epoch)
		VALUES (?, ?, ?, ?)
		RETURNING id`)

	err := s.db.QueryRowContext(ctx, query,
		interaction.UserMessage,
		interaction.SystemResponse,
		nullID(interaction.ExampleID),
		interaction.CreatedAt.UnixMilli(),
	).Scan(&interaction.ID)
	if err != nil {
		return fmt.Errorf("error creating interaction: %w", err)
	}

	return nil
}

func (s *sqlStorage) GetInteraction(ctx context.Context, id int64) (*models.Interaction, error) {
	query := s.rebind(`
		SELECT id, user_message, system_response, learning_data_id, created_at_epoch
		FROM messages WHERE id = ?`)

	var (
		m         models.Interaction
		exampleID sql.NullInt64
		epoch     int64
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID,
		&m.UserMessage,
		&m.SystemResponse,
		&exampleID,
		&epoch,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting interaction: %w", err)
	}

	if exampleID.Valid {
		m.ExampleID = models.Int64Ptr(exampleID.Int64)
	}
	m.CreatedAt = time.UnixMilli(epoch)
	return &m, nil
}

func (s *sqlStorage) SetInteractionExample(ctx context.Context, id, exampleID int64) error {
	query := s.rebind(`UPDATE messages SET learning_data_id = ? WHERE id = ?`)

	result, err := s.db.ExecContext(ctx, query, exampleID, id)
	if err != nil {
		return fmt.Errorf("error updating interaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *sqlStorage) Close() error {
	return s.db.Close()
}

func (s *sqlStorage) queryExamples(ctx context.Context, query string, args ...any) ([]*models.Example, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying examples: %w", err)
	}
	defer rows.Close()

	var examples []*models.Example
	for rows.Next() {
		example, err := scanExample(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning example: %w", err)
		}
		examples = append(examples, example)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating examples: %w", err)
	}

	return examples, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExample(row rowScanner) (*models.Example, error) {
	var (
		e           models.Example
		language    sql.NullString
		description sql.NullString
		tags        sql.NullString
		rating      sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.Code, &language, &description, &tags, &rating); err != nil {
		return nil, err
	}

	e.Language = language.String
	e.Description = description.String
	e.Tags = tags.String
	if rating.Valid {
		e.Rating = models.IntPtr(int(rating.Int64))
	}
	return &e, nil
}

func nullRating(r *int) sql.NullInt64 {
	if r == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*r), Valid: true}
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
