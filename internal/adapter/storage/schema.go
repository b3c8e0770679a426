package storage

import (
	"context"
	"fmt"
	"strings"
)

// schema is written against the portable subset of MySQL, Postgres and
// SQLite; {{...}} markers are substituted per dialect.
const schema = `
CREATE TABLE IF NOT EXISTS part_types (
	id {{id}},
	name VARCHAR(100) NOT NULL UNIQUE,
	created_at {{ts}} NOT NULL
){{engine}};

CREATE TABLE IF NOT EXISTS aircraft (
	id {{id}},
	name VARCHAR(100) NOT NULL UNIQUE,
	created_at {{ts}} NOT NULL
){{engine}};

CREATE TABLE IF NOT EXISTS aircraft_requirements (
	id {{id}},
	aircraft_id BIGINT NOT NULL REFERENCES aircraft(id) ON DELETE CASCADE,
	part_type_id BIGINT NOT NULL REFERENCES part_types(id),
	quantity INT NOT NULL DEFAULT 1,
	notes TEXT,
	created_at {{ts}} NOT NULL,
	updated_at {{ts}} NOT NULL,
	UNIQUE (aircraft_id, part_type_id)
){{engine}};

CREATE TABLE IF NOT EXISTS team_permissions (
	id {{id}},
	name VARCHAR(50) NOT NULL UNIQUE,
	description VARCHAR(200) NOT NULL
){{engine}};

CREATE TABLE IF NOT EXISTS teams (
	id {{id}},
	name VARCHAR(200) NOT NULL,
	part_type_id BIGINT NULL REFERENCES part_types(id) ON DELETE SET NULL,
	is_assembly_team BOOLEAN NOT NULL DEFAULT FALSE,
	created_at {{ts}} NOT NULL,
	UNIQUE (part_type_id, is_assembly_team)
){{engine}};

CREATE TABLE IF NOT EXISTS team_permission_links (
	team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	permission_id BIGINT NOT NULL REFERENCES team_permissions(id) ON DELETE CASCADE,
	PRIMARY KEY (team_id, permission_id)
){{engine}};

CREATE TABLE IF NOT EXISTS users (
	id {{id}},
	username VARCHAR(150) NOT NULL UNIQUE,
	email VARCHAR(254) NOT NULL DEFAULT '',
	first_name VARCHAR(150) NOT NULL DEFAULT '',
	last_name VARCHAR(150) NOT NULL DEFAULT '',
	password_hash VARCHAR(128) NOT NULL,
	team_id BIGINT NULL REFERENCES teams(id) ON DELETE SET NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
	created_at {{ts}} NOT NULL
){{engine}};

CREATE TABLE IF NOT EXISTS parts (
	id {{id}},
	name VARCHAR(100) NOT NULL,
	part_type_id BIGINT NOT NULL REFERENCES part_types(id),
	aircraft_id BIGINT NOT NULL REFERENCES aircraft(id) ON DELETE CASCADE,
	created_by BIGINT NOT NULL REFERENCES users(id),
	is_used BOOLEAN NOT NULL DEFAULT FALSE,
	created_at {{ts}} NOT NULL
){{engine}};

CREATE TABLE IF NOT EXISTS inventory (
	id {{id}},
	part_type_id BIGINT NOT NULL REFERENCES part_types(id) ON DELETE CASCADE,
	aircraft_id BIGINT NOT NULL REFERENCES aircraft(id) ON DELETE CASCADE,
	quantity INT NOT NULL DEFAULT 0,
	minimum_quantity INT NOT NULL DEFAULT 1,
	updated_at {{ts}} NOT NULL,
	UNIQUE (part_type_id, aircraft_id)
){{engine}};

CREATE TABLE IF NOT EXISTS assemblies (
	id {{id}},
	aircraft_id BIGINT NOT NULL REFERENCES aircraft(id),
	assembled_by BIGINT NOT NULL REFERENCES users(id),
	assembled_at {{ts}} NOT NULL,
	notes TEXT,
	is_complete BOOLEAN NOT NULL DEFAULT FALSE
){{engine}};

CREATE TABLE IF NOT EXISTS assembly_parts (
	assembly_id BIGINT NOT NULL REFERENCES assemblies(id) ON DELETE CASCADE,
	part_id BIGINT NOT NULL REFERENCES parts(id),
	PRIMARY KEY (assembly_id, part_id)
){{engine}};
`

// Statements returns the schema DDL for the dialect, one statement per entry.
func (d Dialect) Statements() []string {
	var out []string
	for _, stmt := range strings.Split(d.types.Replace(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(stmt))
	}
	return out
}

// Migrate creates any missing tables. It is safe to run repeatedly.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Statements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
