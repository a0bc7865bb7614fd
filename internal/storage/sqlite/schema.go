package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS questions (
	id                   TEXT PRIMARY KEY,
	question             TEXT NOT NULL,
	answers              TEXT NOT NULL,
	correct_answer_index INTEGER NOT NULL,
	category             TEXT NOT NULL DEFAULT 'general',
	points               INTEGER NOT NULL DEFAULT 0,
	created_at           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS questions_order_idx ON questions (created_at, id);

CREATE TABLE IF NOT EXISTS user_progress (
	telegram_id      INTEGER PRIMARY KEY,
	next_question_id TEXT,
	last_question_id TEXT,
	last_quiz_date   TEXT,
	streak           INTEGER NOT NULL DEFAULT 0,
	last_streak_date TEXT,
	quiz_points      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS user_totals (
	telegram_id  INTEGER PRIMARY KEY,
	total_points INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS quiz_responses (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	telegram_id           INTEGER NOT NULL,
	question_id           TEXT NOT NULL,
	selected_answer_index INTEGER NOT NULL,
	is_correct            INTEGER NOT NULL,
	points_earned         INTEGER NOT NULL,
	created_at            INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS quiz_responses_user_idx ON quiz_responses (telegram_id, id);
`
