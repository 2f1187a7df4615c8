package db

import (
	"context"
	"fmt"
)

// schema is applied at startup. Every statement is idempotent, so
// restarting against an existing database is safe. Uniqueness rules
// live here as constraints rather than application-level checks: the
// database is the last word on duplicates.
const schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	name       text NOT NULL UNIQUE,
	slug       text NOT NULL UNIQUE,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
	id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id     uuid NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	username      text NOT NULL,
	password_hash text NOT NULL,
	role          text NOT NULL,
	permissions   jsonb NOT NULL DEFAULT '{}'::jsonb,
	created_at    timestamptz NOT NULL DEFAULT now(),
	UNIQUE (tenant_id, username)
);

CREATE TABLE IF NOT EXISTS residents (
	id                 bigserial PRIMARY KEY,
	tenant_id          uuid NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	husband_name       text NOT NULL DEFAULT '',
	husband_id_number  text NOT NULL DEFAULT '',
	wife_name          text NOT NULL DEFAULT '',
	wife_id_number     text NOT NULL DEFAULT '',
	phone_number       text NOT NULL DEFAULT '',
	num_family_members integer,
	injuries           text NOT NULL DEFAULT '',
	diseases           text NOT NULL DEFAULT '',
	damage_level       text NOT NULL DEFAULT '',
	neighborhood       text NOT NULL DEFAULT '',
	notes              text NOT NULL DEFAULT '',
	has_received_aid   boolean NOT NULL DEFAULT false,
	residence_status   text NOT NULL DEFAULT 'مقيم'
);

CREATE UNIQUE INDEX IF NOT EXISTS residents_husband_id_number_key
	ON residents (tenant_id, husband_id_number) WHERE husband_id_number <> '';
CREATE UNIQUE INDEX IF NOT EXISTS residents_wife_id_number_key
	ON residents (tenant_id, wife_id_number) WHERE wife_id_number <> '';
CREATE UNIQUE INDEX IF NOT EXISTS residents_phone_number_key
	ON residents (tenant_id, phone_number) WHERE phone_number <> '';

CREATE TABLE IF NOT EXISTS aids (
	id          bigserial PRIMARY KEY,
	tenant_id   uuid NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	resident_id bigint NOT NULL REFERENCES residents(id) ON DELETE CASCADE,
	aid_type    text NOT NULL DEFAULT '',
	date        text NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS aids_resident_idx ON aids (tenant_id, resident_id);

CREATE TABLE IF NOT EXISTS children (
	id            bigserial PRIMARY KEY,
	tenant_id     uuid NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	name          text NOT NULL DEFAULT '',
	id_number     text NOT NULL,
	birth_date    text NOT NULL DEFAULT '',
	age           integer NOT NULL DEFAULT 0,
	phone         text NOT NULL DEFAULT '',
	gender        text NOT NULL DEFAULT '',
	benefit_type  text NOT NULL DEFAULT '',
	benefit_count integer NOT NULL DEFAULT 0,
	UNIQUE (tenant_id, id_number)
);

CREATE TABLE IF NOT EXISTS assistances (
	id         bigserial PRIMARY KEY,
	tenant_id  uuid NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	child_id   bigint NOT NULL REFERENCES children(id) ON DELETE CASCADE,
	help_type  text NOT NULL DEFAULT '',
	other_help text NOT NULL DEFAULT '',
	date_added timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS assistances_child_idx ON assistances (tenant_id, child_id, date_added);

CREATE TABLE IF NOT EXISTS imports (
	id        bigserial PRIMARY KEY,
	tenant_id uuid NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	source    text NOT NULL DEFAULT '',
	name      text NOT NULL DEFAULT '',
	date      text NOT NULL DEFAULT '',
	type      text NOT NULL DEFAULT '',
	amount    double precision NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS exports (
	id          bigserial PRIMARY KEY,
	tenant_id   uuid NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	description text NOT NULL DEFAULT '',
	amount      double precision NOT NULL DEFAULT 0,
	date        text NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS notifications (
	id          bigserial PRIMARY KEY,
	tenant_id   uuid NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	user_id     uuid NOT NULL,
	username    text NOT NULL DEFAULT '',
	action      text NOT NULL DEFAULT '',
	target_name text NOT NULL DEFAULT '',
	is_new      boolean NOT NULL DEFAULT true,
	timestamp   timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS notifications_tenant_time_idx ON notifications (tenant_id, timestamp DESC);
`

// Migrate creates any missing tables and indexes.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	db.logger.Info("database schema up to date")
	return nil
}
