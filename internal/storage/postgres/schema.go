package postgres

const schema = `
CREATE TABLE IF NOT EXISTS questions (
	id                   TEXT PRIMARY KEY,
	question             TEXT NOT NULL,
	answers              TEXT[] NOT NULL,
	correct_answer_index INTEGER NOT NULL,
	category             TEXT NOT NULL DEFAULT 'general',
	points               INTEGER NOT NULL DEFAULT 0,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS questions_order_idx ON questions (created_at, id);

CREATE TABLE IF NOT EXISTS user_progress (
	telegram_id      BIGINT PRIMARY KEY,
	next_question_id TEXT,
	last_question_id TEXT,
	last_quiz_date   DATE,
	streak           INTEGER NOT NULL DEFAULT 0,
	last_streak_date DATE,
	quiz_points      BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS user_totals (
	telegram_id  BIGINT PRIMARY KEY,
	total_points BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS quiz_responses (
	id                    BIGSERIAL PRIMARY KEY,
	telegram_id           BIGINT NOT NULL,
	question_id           TEXT NOT NULL,
	selected_answer_index INTEGER NOT NULL,
	is_correct            BOOLEAN NOT NULL,
	points_earned         INTEGER NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS quiz_responses_user_idx ON quiz_responses (telegram_id, id DESC);
`
