package database

import (
	"context"
	"fmt"

	"contactbook/internal/models"

	"gorm.io/gorm"
)

const (
	sqliteDailyViewsDDL = `CREATE VIEW IF NOT EXISTS daily_contact_views AS
SELECT contact_id,
       strftime('%Y-%m-%d', viewed_at) AS view_date,
       COUNT(*) AS view_count
FROM contact_views
GROUP BY contact_id, strftime('%Y-%m-%d', viewed_at)`

	postgresDailyViewsDDL = `CREATE OR REPLACE VIEW daily_contact_views AS
SELECT contact_id,
       to_char(viewed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS view_date,
       COUNT(*) AS view_count
FROM contact_views
GROUP BY 1, 2`
)

// Migrate creates the tables and the daily aggregate view if they are missing.
func (p *Pool) Migrate(ctx context.Context) error {
	return p.WithConn(ctx, func(db *gorm.DB) error {
		if err := db.AutoMigrate(&models.Account{}, &models.Contact{}, &models.ViewEvent{}); err != nil {
			return fmt.Errorf("failed to auto-migrate models: %w", err)
		}

		var ddl string
		switch p.Dialect() {
		case "sqlite":
			ddl = sqliteDailyViewsDDL
		case "postgres":
			ddl = postgresDailyViewsDDL
		default:
			return fmt.Errorf("no daily view definition for dialect %s", p.Dialect())
		}
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("failed to create daily_contact_views: %w", err)
		}

		p.log.Info("schema ready", "dialect", p.Dialect())
		return nil
	})
}
