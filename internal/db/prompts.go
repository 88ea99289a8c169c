package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mikobrno/pdfkar/internal/model"
	"github.com/mikobrno/pdfkar/pkg/errors"
)

type PromptRepository interface {
	// CreateVersion inserts the next draft version for name. Version
	// numbers are monotonic per name.
	CreateVersion(ctx context.Context, name, text string, parameters json.RawMessage) (*model.PromptVersion, error)

	// Activate archives the currently active version for name and
	// activates the target, as one transaction. Afterwards exactly one
	// version of name is active.
	Activate(ctx context.Context, id uuid.UUID, name string) (*model.PromptVersion, error)

	ActiveVersion(ctx context.Context, name string) (*model.PromptVersion, error)
	VersionsByName(ctx context.Context, name string) ([]model.PromptVersion, error)
}

type promptRepo struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewPromptRepository(db *sql.DB, log zerolog.Logger) PromptRepository {
	return &promptRepo{db: db, log: log}
}

const promptColumns = `id, name, version, prompt_text, parameters, status, created_at, updated_at`

func scanPrompt(row rowScanner) (*model.PromptVersion, error) {
	var (
		p      model.PromptVersion
		id     string
		params []byte
	)
	err := row.Scan(&id, &p.Name, &p.Version, &p.Text, &params, &p.Status,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	p.Parameters = json.RawMessage(params)
	return &p, nil
}

func (r *promptRepo) CreateVersion(ctx context.Context, name, text string, parameters json.RawMessage) (*model.PromptVersion, error) {
	now := time.Now().UTC()
	if parameters == nil {
		parameters = json.RawMessage(`{}`)
	}
	version := &model.PromptVersion{
		ID:         uuid.New(),
		Name:       name,
		Text:       text,
		Parameters: parameters,
		Status:     model.PromptStatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		// Lock the name's rows so concurrent creates cannot pick the same
		// version number. The unique key on (name, version) backstops it.
		row := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(version), 0) FROM prompt_versions WHERE name = ? FOR UPDATE`, name)
		var maxVersion int
		if err := row.Scan(&maxVersion); err != nil {
			return err
		}
		version.Version = maxVersion + 1

		_, err := tx.ExecContext(ctx, `
INSERT INTO prompt_versions (id, name, version, prompt_text, parameters, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			version.ID.String(), version.Name, version.Version, version.Text,
			[]byte(version.Parameters), version.Status, version.CreatedAt, version.UpdatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.log.Info().
		Str("name", name).
		Int("version", version.Version).
		Msg("Prompt version created")
	return version, nil
}

type promptStatusChange struct {
	id     uuid.UUID
	status model.PromptStatus
}

// activationChanges computes the status updates that leave target as the
// single active version of its name: every other active version is
// archived, the target becomes active. An unknown target is
// ErrPromptNotFound; re-activating the active version changes nothing.
func activationChanges(versions []model.PromptVersion, target uuid.UUID) ([]promptStatusChange, error) {
	var changes []promptStatusChange
	found := false
	for _, v := range versions {
		switch {
		case v.ID == target:
			found = true
			if v.Status != model.PromptStatusActive {
				changes = append(changes, promptStatusChange{id: v.ID, status: model.PromptStatusActive})
			}
		case v.Status == model.PromptStatusActive:
			changes = append(changes, promptStatusChange{id: v.ID, status: model.PromptStatusArchived})
		}
	}
	if !found {
		return nil, errors.ErrPromptNotFound
	}
	return changes, nil
}

func (r *promptRepo) Activate(ctx context.Context, id uuid.UUID, name string) (*model.PromptVersion, error) {
	now := time.Now().UTC()
	var activated *model.PromptVersion
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		// Lock the name's rows so concurrent activations serialize.
		rows, err := tx.QueryContext(ctx,
			`SELECT `+promptColumns+` FROM prompt_versions WHERE name = ? FOR UPDATE`, name)
		if err != nil {
			return err
		}
		var versions []model.PromptVersion
		for rows.Next() {
			p, err := scanPrompt(rows)
			if err != nil {
				rows.Close()
				return err
			}
			versions = append(versions, *p)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}

		changes, err := activationChanges(versions, id)
		if err != nil {
			return err
		}
		for _, ch := range changes {
			if _, err := tx.ExecContext(ctx, `
UPDATE prompt_versions SET status = ?, updated_at = ? WHERE id = ?`,
				ch.status, now, ch.id.String()); err != nil {
				return err
			}
		}

		activated, err = scanPrompt(tx.QueryRowContext(ctx,
			`SELECT `+promptColumns+` FROM prompt_versions WHERE id = ?`, id.String()))
		return err
	})
	if err != nil {
		return nil, err
	}

	r.log.Info().
		Str("name", name).
		Int("version", activated.Version).
		Msg("Prompt version activated")
	return activated, nil
}

func (r *promptRepo) ActiveVersion(ctx context.Context, name string) (*model.PromptVersion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+promptColumns+` FROM prompt_versions WHERE name = ? AND status = ?`,
		name, model.PromptStatusActive)
	p, err := scanPrompt(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrNoActivePrompt
	}
	return p, err
}

func (r *promptRepo) VersionsByName(ctx context.Context, name string) ([]model.PromptVersion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+promptColumns+` FROM prompt_versions WHERE name = ? ORDER BY version DESC`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []model.PromptVersion
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *p)
	}
	return versions, rows.Err()
}
