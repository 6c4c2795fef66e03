package db

import (
	"database/sql"
	"log"
)

const (
	sqlCreateFollowersIndices = `
		CREATE INDEX IF NOT EXISTS idx_followers_dest ON followers(dest);
		CREATE INDEX IF NOT EXISTS idx_followers_src ON followers(src);
		CREATE INDEX IF NOT EXISTS idx_followers_status ON followers(status);
	`

	sqlCreateActivitiesIndices = `
		CREATE INDEX IF NOT EXISTS idx_activities_source ON activities(source);
		CREATE INDEX IF NOT EXISTS idx_activities_created_at ON activities(created_at DESC);
	`
)

// RunMigrations executes all database migrations
func (db *DB) RunMigrations() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlCreateFollowersIndices); err != nil {
			log.Printf("Warning: Failed to create followers indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateActivitiesIndices); err != nil {
			log.Printf("Warning: Failed to create activities indices: %v", err)
		}
		return nil
	})
}
