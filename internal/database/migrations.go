package database

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE profiles (
	id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	full_name TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE menus (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	guest_count INTEGER NOT NULL CHECK (guest_count >= 1),
	prep_days INTEGER NOT NULL CHECK (prep_days >= 1),
	planning_complete INTEGER NOT NULL DEFAULT 0,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX idx_menus_user_created ON menus(user_id, created_at DESC);

CREATE TABLE courses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	menu_id INTEGER NOT NULL REFERENCES menus(id) ON DELETE CASCADE,
	client_key TEXT NOT NULL,
	title TEXT NOT NULL,
	position INTEGER NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	UNIQUE (menu_id, client_key)
);
CREATE INDEX idx_courses_menu ON courses(menu_id, position);

CREATE TABLE recipes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	course_id INTEGER NOT NULL UNIQUE REFERENCES courses(id) ON DELETE CASCADE,
	created_by TEXT NOT NULL REFERENCES users(id),
	title TEXT NOT NULL,
	ingredients TEXT NOT NULL,
	instructions TEXT NOT NULL,
	prep_time_minutes INTEGER NOT NULL,
	cook_time_minutes INTEGER NOT NULL,
	servings INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE menu_documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	menu_id INTEGER NOT NULL REFERENCES menus(id) ON DELETE CASCADE,
	document_type TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (menu_id, document_type)
);

CREATE TABLE generation_metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_name TEXT NOT NULL,
	model TEXT NOT NULL,
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	latency_ms INTEGER NOT NULL DEFAULT 0,
	timestamp TIMESTAMP NOT NULL
);
CREATE INDEX idx_generation_metrics_ts ON generation_metrics(timestamp);
`,
	},
}
