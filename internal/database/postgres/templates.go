package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/school-reports/internal/database"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// TemplateRepository provides PostgreSQL-backed template settings storage
type TemplateRepository struct {
	pool *Pool
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(pool *Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

const templateColumns = `id, user_id, name, school_name, school_logo, additional_logos, primary_color,
	secondary_color, header_text, footer_text, language, custom_fields, is_active, created_at, updated_at`

func scanTemplate(row rowScanner) (*database.TemplateSettings, error) {
	var t database.TemplateSettings
	var fields []byte
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &t.SchoolName, &t.SchoolLogo,
		pq.Array(&t.AdditionalLogos), &t.PrimaryColor, &t.SecondaryColor, &t.HeaderText,
		&t.FooterText, &t.Language, &fields, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if t.AdditionalLogos == nil {
		t.AdditionalLogos = []string{}
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &t.CustomFields); err != nil {
			return nil, fmt.Errorf("decode custom fields: %w", err)
		}
	}
	if t.CustomFields == nil {
		t.CustomFields = []database.CustomField{}
	}
	return &t, nil
}

func encodeCustomFields(fields []database.CustomField) ([]byte, error) {
	if fields == nil {
		fields = []database.CustomField{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode custom fields: %w", err)
	}
	return data, nil
}

func (r *TemplateRepository) CreateTemplate(ctx context.Context, tmpl *database.TemplateSettings) error {
	if tmpl.ID == "" {
		tmpl.ID = newID()
	}
	now := time.Now()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now
	fields, err := encodeCustomFields(tmpl.CustomFields)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO template_settings (id, user_id, name, school_name, school_logo, additional_logos,
			primary_color, secondary_color, header_text, footer_text, language, custom_fields, is_active,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		tmpl.ID, tmpl.OwnerID, tmpl.Name, tmpl.SchoolName, tmpl.SchoolLogo, pq.Array(tmpl.AdditionalLogos),
		tmpl.PrimaryColor, tmpl.SecondaryColor, tmpl.HeaderText, tmpl.FooterText, tmpl.Language, fields,
		tmpl.IsActive, tmpl.CreatedAt, tmpl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) GetTemplate(ctx context.Context, ownerID, id string) (*database.TemplateSettings, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	tmpl, err := scanTemplate(r.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM template_settings WHERE id = $1 AND user_id = $2`, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return tmpl, nil
}

func (r *TemplateRepository) ListTemplates(ctx context.Context, ownerID string) ([]database.TemplateSettings, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+templateColumns+` FROM template_settings WHERE user_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	templates := []database.TemplateSettings{}
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}

func (r *TemplateRepository) GetActiveTemplate(ctx context.Context, ownerID string) (*database.TemplateSettings, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+templateColumns+` FROM template_settings
		 WHERE user_id = $1 AND is_active = TRUE
		 ORDER BY updated_at DESC LIMIT 2`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get active template: %w", err)
	}
	defer rows.Close()

	var active *database.TemplateSettings
	count := 0
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan active template: %w", err)
		}
		if active == nil {
			active = tmpl
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active templates: %w", err)
	}
	if count > 1 {
		log.Warn().Str("owner_id", ownerID).Str("template_id", active.ID).
			Msg("several active templates found, using the most recently updated")
	}
	return active, nil
}

func (r *TemplateRepository) UpdateTemplate(ctx context.Context, tmpl *database.TemplateSettings) error {
	if _, err := uuid.Parse(tmpl.ID); err != nil {
		return fmt.Errorf("update template: %w", database.ErrNotFound)
	}
	tmpl.UpdatedAt = time.Now()
	fields, err := encodeCustomFields(tmpl.CustomFields)
	if err != nil {
		return err
	}
	result, err := r.pool.Exec(ctx,
		`UPDATE template_settings SET name = $1, school_name = $2, school_logo = $3, additional_logos = $4,
			primary_color = $5, secondary_color = $6, header_text = $7, footer_text = $8, language = $9,
			custom_fields = $10, updated_at = $11
		 WHERE id = $12 AND user_id = $13`,
		tmpl.Name, tmpl.SchoolName, tmpl.SchoolLogo, pq.Array(tmpl.AdditionalLogos), tmpl.PrimaryColor,
		tmpl.SecondaryColor, tmpl.HeaderText, tmpl.FooterText, tmpl.Language, fields, tmpl.UpdatedAt,
		tmpl.ID, tmpl.OwnerID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return requireAffected(result, "update template")
}

func (r *TemplateRepository) SetActiveTemplate(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("set active template: %w", database.ErrNotFound)
	}
	return r.pool.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now()
		result, err := tx.ExecContext(ctx,
			`UPDATE template_settings SET is_active = TRUE, updated_at = $1 WHERE id = $2 AND user_id = $3`,
			now, id, ownerID)
		if err != nil {
			return fmt.Errorf("activate template: %w", err)
		}
		if err := requireAffected(result, "activate template"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE template_settings SET is_active = FALSE, updated_at = $1
			 WHERE user_id = $2 AND id <> $3 AND is_active = TRUE`,
			now, ownerID, id); err != nil {
			return fmt.Errorf("deactivate other templates: %w", err)
		}
		return nil
	})
}
