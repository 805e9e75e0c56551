package sqlite

import (
	"fmt"

	"github.com/takax-network/takax/internal/domain"
)

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
// Amounts are stored as integer cents.
func Migrations() []string {
	return []string{
		// Users keyed by Telegram id
		`CREATE TABLE IF NOT EXISTS users (
			telegram_id        TEXT PRIMARY KEY,
			username           TEXT NOT NULL DEFAULT '',
			first_name         TEXT NOT NULL DEFAULT '',
			last_name          TEXT NOT NULL DEFAULT '',
			balance_cents      INTEGER NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
			total_earned_cents INTEGER NOT NULL DEFAULT 0,
			referral_code      TEXT NOT NULL UNIQUE,
			referred_by_code   TEXT NOT NULL DEFAULT '',
			status             TEXT NOT NULL DEFAULT 'active',
			ban_reason         TEXT NOT NULL DEFAULT '',
			team_id            TEXT NOT NULL DEFAULT '',
			created_at         TEXT NOT NULL,
			updated_at         TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_status ON users(status)`,

		// Balance history; one row per applied mutation
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id         TEXT NOT NULL REFERENCES users(telegram_id),
			amount_cents    INTEGER NOT NULL,
			type            TEXT NOT NULL,
			reason          TEXT NOT NULL DEFAULT '',
			idempotency_key TEXT NOT NULL UNIQUE,
			created_at      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger_entries(user_id, created_at)`,

		// Tasks
		`CREATE TABLE IF NOT EXISTS tasks (
			id            TEXT PRIMARY KEY,
			title         TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			reward_cents  INTEGER NOT NULL,
			task_type     TEXT NOT NULL,
			external_link TEXT NOT NULL DEFAULT '',
			daily_limit   INTEGER NOT NULL DEFAULT 1,
			is_active     INTEGER NOT NULL DEFAULT 1,
			requirements  TEXT NOT NULL DEFAULT '{}',
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,

		// Task submissions; (user, task, day, seq) bounds the daily count
		`CREATE TABLE IF NOT EXISTS task_submissions (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL REFERENCES users(telegram_id),
			task_id         TEXT NOT NULL REFERENCES tasks(id),
			day             TEXT NOT NULL,
			seq             INTEGER NOT NULL,
			idempotency_key TEXT,
			status          TEXT NOT NULL,
			proof_media_url TEXT NOT NULL DEFAULT '',
			proof_text      TEXT NOT NULL DEFAULT '',
			reward_cents    INTEGER NOT NULL DEFAULT 0,
			submitted_at    TEXT NOT NULL,
			reviewed_at     TEXT,
			reviewed_by     TEXT NOT NULL DEFAULT '',
			UNIQUE(user_id, task_id, day, seq)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_submissions_idem ON task_submissions(idempotency_key) WHERE idempotency_key IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_task ON task_submissions(task_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_user ON task_submissions(user_id, status)`,

		// Ads and append-only views
		`CREATE TABLE IF NOT EXISTS ads (
			id                   TEXT PRIMARY KEY,
			title                TEXT NOT NULL,
			reward_cents         INTEGER NOT NULL,
			daily_limit          INTEGER NOT NULL,
			min_watch_percentage INTEGER NOT NULL,
			is_active            INTEGER NOT NULL DEFAULT 1,
			created_at           TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ad_views (
			id                    TEXT PRIMARY KEY,
			user_id               TEXT NOT NULL REFERENCES users(telegram_id),
			ad_id                 TEXT NOT NULL REFERENCES ads(id),
			day                   TEXT NOT NULL,
			seq                   INTEGER NOT NULL,
			duration_watched      INTEGER NOT NULL DEFAULT 0,
			completion_percentage INTEGER NOT NULL DEFAULT 0,
			reward_cents          INTEGER NOT NULL DEFAULT 0,
			created_at            TEXT NOT NULL,
			UNIQUE(user_id, ad_id, day, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ad_views_user ON ad_views(user_id, day)`,

		// Referrals; a user is referred at most once
		`CREATE TABLE IF NOT EXISTS referrals (
			id                  TEXT PRIMARY KEY,
			referrer_id         TEXT NOT NULL REFERENCES users(telegram_id),
			referred_id         TEXT NOT NULL UNIQUE REFERENCES users(telegram_id),
			referral_code       TEXT NOT NULL,
			reward_cents        INTEGER NOT NULL,
			new_user_bonus_cents INTEGER NOT NULL,
			created_at          TEXT NOT NULL,
			CHECK (referrer_id <> referred_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_referrals_referrer ON referrals(referrer_id, created_at)`,

		// Teams of at most four
		`CREATE TABLE IF NOT EXISTS teams (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL UNIQUE COLLATE NOCASE,
			leader_id       TEXT NOT NULL,
			invitation_code TEXT NOT NULL UNIQUE,
			member_count    INTEGER NOT NULL DEFAULT 1 CHECK (member_count BETWEEN 0 AND 4),
			division        TEXT NOT NULL DEFAULT 'Bronze',
			is_banned       INTEGER NOT NULL DEFAULT 0,
			created_at      TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS team_members (
			team_id   TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
			user_id   TEXT NOT NULL UNIQUE REFERENCES users(telegram_id),
			role      TEXT NOT NULL,
			joined_at TEXT NOT NULL,
			PRIMARY KEY (team_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS team_invites (
			id         TEXT PRIMARY KEY,
			team_id    TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
			inviter_id TEXT NOT NULL,
			method     TEXT NOT NULL,
			target     TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS team_challenges (
			team_id    TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
			challenge  TEXT NOT NULL,
			period     TEXT NOT NULL,
			joined_at  TEXT NOT NULL,
			completed_at TEXT,
			PRIMARY KEY (team_id, challenge, period)
		)`,

		// Withdrawals
		`CREATE TABLE IF NOT EXISTS withdrawals (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(telegram_id),
			amount_cents INTEGER NOT NULL,
			fee_cents    INTEGER NOT NULL DEFAULT 0,
			net_cents    INTEGER NOT NULL,
			method       TEXT NOT NULL,
			account      TEXT NOT NULL,
			status       TEXT NOT NULL,
			reason       TEXT NOT NULL DEFAULT '',
			processed_by TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawals_user ON withdrawals(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawals(status, created_at)`,

		// In-app notifications
		`CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			type       TEXT NOT NULL DEFAULT 'info',
			is_read    INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at)`,

		// Support tickets
		`CREATE TABLE IF NOT EXISTS support_tickets (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			subject    TEXT NOT NULL,
			message    TEXT NOT NULL,
			image      TEXT NOT NULL DEFAULT '',
			category   TEXT NOT NULL DEFAULT 'general',
			priority   TEXT NOT NULL DEFAULT 'medium',
			status     TEXT NOT NULL DEFAULT 'pending',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_user ON support_tickets(user_id, created_at)`,

		// Admin audit log
		`CREATE TABLE IF NOT EXISTS admin_actions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			admin_id   TEXT NOT NULL,
			kind       TEXT NOT NULL,
			details    TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
	}
}

// SeedStatements inserts rows the app needs before any admin action.
func SeedStatements() []string {
	ad := domain.DefaultAd()
	return []string{
		fmt.Sprintf(`INSERT OR IGNORE INTO ads (id, title, reward_cents, daily_limit, min_watch_percentage, is_active, created_at)
			VALUES ('%s', '%s', %d, %d, %d, 1, '%s')`,
			ad.ID, ad.Title, domain.ToCents(ad.RewardBase), ad.DailyLimit, ad.MinWatchPercentage, now()),
	}
}
