package repository

import (
	"context"
	"database/sql"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// CreateCourt inserts a new tenant.
func CreateCourt(ctx context.Context, db DBTX, c models.Court) (models.Court, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO courts (id, name, tier, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING created_at
	`, c.ID, c.Name, c.Tier)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return models.Court{}, wrapDBErr(err)
	}
	return c, nil
}

// GetCourt fetches a court by id.
func GetCourt(ctx context.Context, db DBTX, id models.CourtID) (models.Court, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, name, tier, created_at FROM courts WHERE id = $1
	`, id)
	var c models.Court
	if err := row.Scan(&c.ID, &c.Name, &c.Tier, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return models.Court{}, apperr.NotFound("court")
		}
		return models.Court{}, wrapDBErr(err)
	}
	return c, nil
}

// ListCourts returns every registered tenant, paginated.
func ListCourts(ctx context.Context, db DBTX, page Page) (Result[models.Court], error) {
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM courts`).Scan(&total); err != nil {
		return Result[models.Court]{}, wrapDBErr(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, tier, created_at FROM courts
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, page.Limit, page.Offset())
	if err != nil {
		return Result[models.Court]{}, wrapDBErr(err)
	}
	defer rows.Close()

	var items []models.Court
	for rows.Next() {
		var c models.Court
		if err := rows.Scan(&c.ID, &c.Name, &c.Tier, &c.CreatedAt); err != nil {
			return Result[models.Court]{}, wrapDBErr(err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return Result[models.Court]{}, wrapDBErr(err)
	}
	return Result[models.Court]{Items: items, Total: total, Page: page.Number, Limit: page.Limit}, nil
}
