package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const (
	errUniqueViolation     pq.ErrorCode = "23505"
	errForeignKeyViolation pq.ErrorCode = "23503"
	errInvalidTextRep      pq.ErrorCode = "22P02"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
	SSLMode  string
}

func NewPostgresDB(cfg PostgresConfig) (*sql.DB, error) {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}

	db, err := sql.Open("postgres", fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DB,
		cfg.SSLMode))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// PostgresStore implements DataStore on postgres.
type PostgresStore struct {
	root *sql.DB
	db   dbtx
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{root: db, db: db}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx DataStore) error) error {
	sqlTx, err := s.root.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&PostgresStore{root: s.root, db: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback tx: %w", rbErr))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

const userColumns = "id, google_id, email, name, avatar, created_at, updated_at"

func (s *PostgresStore) GetUserByGoogleID(ctx context.Context, googleID string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE google_id = $1", googleID)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

func (s *PostgresStore) CreateUser(ctx context.Context, r CreateUserRequest) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (google_id, email, name, avatar)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns, r.GoogleID, r.Email, r.Name, r.Avatar)

	u, err := scanUser(row)
	if err != nil {
		if isPqErr(err, errUniqueViolation) {
			return User{}, ErrExists
		}

		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &u.Avatar, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isPqErr(err, errInvalidTextRep) {
			return User{}, ErrNotFound
		}

		return User{}, fmt.Errorf("scan user: %w", err)
	}

	return u, nil
}

const projectColumns = "id, user_id, name, frames, created_at, updated_at"

func (s *PostgresStore) CreateProject(ctx context.Context, r CreateProjectRequest) (Project, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO projects (user_id, name, frames)
		 VALUES ($1, $2, $3)
		 RETURNING `+projectColumns, r.UserID, r.Name, r.Frames)
	return scanProject(row)
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = $1", id)
	return scanProject(row)
}

func (s *PostgresStore) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		var p Project
		err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Frames, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

func (s *PostgresStore) UpdateProject(ctx context.Context, r UpdateProjectRequest) (Project, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE projects SET name = $2, frames = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING `+projectColumns, r.ID, r.Name, r.Frames)
	return scanProject(row)
}

func (s *PostgresStore) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		if isPqErr(err, errInvalidTextRep) {
			return ErrNotFound
		}

		return fmt.Errorf("delete project: %w", err)
	}

	return requireAffected(res)
}

func scanProject(row *sql.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Frames, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isPqErr(err, errInvalidTextRep) {
			return Project{}, ErrNotFound
		}

		return Project{}, fmt.Errorf("scan project: %w", err)
	}

	return p, nil
}

const snippetColumns = "id, user_id, project_id, title, code, language, position, size, style, created_at, updated_at"

func (s *PostgresStore) CreateSnippet(ctx context.Context, r CreateSnippetRequest) (Snippet, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO snippets (user_id, project_id, title, code, language, position, size, style)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+snippetColumns,
		r.UserID, r.ProjectID, r.Title, r.Code, r.Language, r.Position, r.Size, r.Style)
	return scanSnippet(row)
}

func (s *PostgresStore) GetSnippet(ctx context.Context, id string) (Snippet, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+snippetColumns+" FROM snippets WHERE id = $1", id)
	return scanSnippet(row)
}

func (s *PostgresStore) ListSnippets(ctx context.Context, r ListSnippetsRequest) ([]Snippet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets
		 WHERE user_id = $1 AND project_id = $2
		 ORDER BY created_at DESC`, r.UserID, r.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("query snippets: %w", err)
	}
	defer rows.Close()

	snippets := []Snippet{}
	for rows.Next() {
		var sn Snippet
		err := rows.Scan(&sn.ID, &sn.UserID, &sn.ProjectID, &sn.Title, &sn.Code, &sn.Language,
			&sn.Position, &sn.Size, &sn.Style, &sn.CreatedAt, &sn.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		snippets = append(snippets, sn)
	}

	return snippets, rows.Err()
}

func (s *PostgresStore) UpdateSnippet(ctx context.Context, r UpdateSnippetRequest) (Snippet, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE snippets
		 SET title = $2, code = $3, language = $4, position = $5, size = $6, style = $7, updated_at = now()
		 WHERE id = $1
		 RETURNING `+snippetColumns,
		r.ID, r.Title, r.Code, r.Language, r.Position, r.Size, r.Style)
	return scanSnippet(row)
}

func (s *PostgresStore) DeleteSnippet(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM snippets WHERE id = $1", id)
	if err != nil {
		if isPqErr(err, errInvalidTextRep) {
			return ErrNotFound
		}

		return fmt.Errorf("delete snippet: %w", err)
	}

	return requireAffected(res)
}

func scanSnippet(row *sql.Row) (Snippet, error) {
	var sn Snippet
	err := row.Scan(&sn.ID, &sn.UserID, &sn.ProjectID, &sn.Title, &sn.Code, &sn.Language,
		&sn.Position, &sn.Size, &sn.Style, &sn.CreatedAt, &sn.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isPqErr(err, errInvalidTextRep) {
			return Snippet{}, ErrNotFound
		}

		return Snippet{}, fmt.Errorf("scan snippet: %w", err)
	}

	return sn, nil
}

const exportColumns = "id, user_id, COALESCE(snippet_id::text, ''), blob_key, format, created_at"

func (s *PostgresStore) CreateExport(ctx context.Context, r CreateExportRequest) (Export, error) {
	var snippetID any
	if r.SnippetID != "" {
		snippetID = r.SnippetID
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO exports (user_id, snippet_id, blob_key, format)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+exportColumns, r.UserID, snippetID, r.BlobKey, r.Format)
	return scanExport(row)
}

func (s *PostgresStore) GetExport(ctx context.Context, id string) (Export, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+exportColumns+" FROM exports WHERE id = $1", id)
	return scanExport(row)
}

func (s *PostgresStore) ListExports(ctx context.Context, userID string) ([]Export, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+exportColumns+" FROM exports WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close()

	exports := []Export{}
	for rows.Next() {
		var e Export
		err := rows.Scan(&e.ID, &e.UserID, &e.SnippetID, &e.BlobKey, &e.Format, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		exports = append(exports, e)
	}

	return exports, rows.Err()
}

func (s *PostgresStore) LatestExportForSnippet(ctx context.Context, userID, snippetID string) (Export, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+exportColumns+` FROM exports
		 WHERE user_id = $1 AND snippet_id = $2
		 ORDER BY created_at DESC
		 LIMIT 1`, userID, snippetID)
	return scanExport(row)
}

func scanExport(row *sql.Row) (Export, error) {
	var e Export
	err := row.Scan(&e.ID, &e.UserID, &e.SnippetID, &e.BlobKey, &e.Format, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isPqErr(err, errInvalidTextRep) {
			return Export{}, ErrNotFound
		}
		if isPqErr(err, errForeignKeyViolation) {
			return Export{}, ErrNotFound
		}

		return Export{}, fmt.Errorf("scan export: %w", err)
	}

	return e, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func isPqErr(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

var _ DataStore = (*PostgresStore)(nil)
