package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/crm-admin-api/internal/models"
)

// StatRepository reads dashboard KPI cards.
type StatRepository struct {
	db *sqlx.DB
}

// NewStatRepository creates a new StatRepository.
func NewStatRepository(db *sqlx.DB) *StatRepository {
	return &StatRepository{db: db}
}

// List returns every stat card in display order.
func (r *StatRepository) List(ctx context.Context) ([]models.Stat, error) {
	const query = `SELECT id, title, value, change, direction, icon, icon_bg FROM stats ORDER BY id ASC`
	stats := []models.Stat{}
	if err := r.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	return stats, nil
}
