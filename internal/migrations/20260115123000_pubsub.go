package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260115123000",
		up:      mig_20260115123000_pubsub_up,
		down:    mig_20260115123000_pubsub_down,
	})
}

func mig_20260115123000_pubsub_up(tx *sqlx.Tx) error {
	// Create a generic notify function that sends the table name and operation
	_, err := tx.Exec(`
		CREATE OR REPLACE FUNCTION notify_config_change()
		RETURNS TRIGGER AS $$
		DECLARE
			payload TEXT;
		BEGIN
			-- Build payload with table name and operation
			payload := TG_TABLE_NAME || ':' || TG_OP;
			PERFORM pg_notify('config_changes', payload);
			RETURN COALESCE(NEW, OLD);
		END;
		$$ LANGUAGE plpgsql;
	`)
	if err != nil {
		return err
	}

	// Trigger for projects table so running gateways can flush their key caches
	_, err = tx.Exec(`
		CREATE TRIGGER projects_notify
		AFTER INSERT OR UPDATE OR DELETE ON projects
		FOR EACH ROW EXECUTE FUNCTION notify_config_change();
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TRIGGER users_notify
		AFTER INSERT OR UPDATE OR DELETE ON users
		FOR EACH ROW EXECUTE FUNCTION notify_config_change();
	`)
	return err
}

func mig_20260115123000_pubsub_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TRIGGER IF EXISTS projects_notify ON projects;`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`DROP TRIGGER IF EXISTS users_notify ON users;`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`DROP FUNCTION IF EXISTS notify_config_change();`)
	return err
}
