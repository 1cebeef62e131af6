package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260115121000",
		up:      mig_20260115121000_projects_up,
		down:    mig_20260115121000_projects_down,
	})
}

func mig_20260115121000_projects_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS projects (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            name VARCHAR(255) NOT NULL,
            gateway_key VARCHAR(255) NOT NULL UNIQUE,
            encrypted_secret TEXT,
            monthly_budget NUMERIC(12, 2) NOT NULL DEFAULT 0,
            rate_limits JSONB DEFAULT '[]'::jsonb,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            UNIQUE (owner_id, name)
        );
    `)
	if err != nil {
		return err
	}

	// Gateway key lookups happen on every proxied request
	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_projects_gateway_key ON projects(gateway_key);
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_projects_owner_id ON projects(owner_id);
    `)
	return err
}

func mig_20260115121000_projects_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS projects CASCADE;`)
	return err
}
