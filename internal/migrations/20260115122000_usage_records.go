package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260115122000",
		up:      mig_20260115122000_usage_records_up,
		down:    mig_20260115122000_usage_records_down,
	})
}

func mig_20260115122000_usage_records_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS usage_records (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
            provider VARCHAR(50) NOT NULL,
            model VARCHAR(255) NOT NULL DEFAULT '',
            prompt_tokens BIGINT NOT NULL DEFAULT 0,
            completion_tokens BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_usage_records_project_id_created_at
        ON usage_records(project_id, created_at DESC);
    `)
	return err
}

func mig_20260115122000_usage_records_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS usage_records CASCADE;`)
	return err
}
