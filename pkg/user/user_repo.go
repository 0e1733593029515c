package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repo interface {
	CreateUser(ctx context.Context, user User) (int, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	GetAllUsers(ctx context.Context) ([]User, error)
	GetSyncEnabledUsers(ctx context.Context) ([]User, error)
	UpdateCalendarSync(ctx context.Context, userId int, enabled bool, calendarId string) error
	SetSyncEnabled(ctx context.Context, userId int, enabled bool) error
	SetLastSyncedAt(ctx context.Context, userId int, at time.Time) error
}

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

const userColumns = `id, uid, username, display_name, role, timezone, calendar_sync_enabled,
				google_calendar_id, last_calendar_sync_at`

func scanUser(row pgx.Row) (User, error) {
	var user User
	var calendarId sql.NullString
	var lastSyncedAt sql.NullTime
	err := row.Scan(
		&user.Id,
		&user.Uid,
		&user.Username,
		&user.DisplayName,
		&user.Role,
		&user.Settings.Timezone,
		&user.Settings.CalendarSync.Enabled,
		&calendarId,
		&lastSyncedAt,
	)
	if err != nil {
		return User{}, err
	}
	if calendarId.Valid {
		user.Settings.CalendarSync.CalendarId = calendarId.String
	}
	if lastSyncedAt.Valid {
		t := lastSyncedAt.Time
		user.Settings.CalendarSync.LastSyncedAt = &t
	}
	return user, nil
}

func (u *UserRepoImpl) CreateUser(ctx context.Context, user User) (int, error) {
	role := user.Role
	if role == "" {
		role = RoleStudent
	}
	timezone := user.Settings.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	query := `INSERT INTO users (uid, username, display_name, role, timezone, calendar_sync_enabled, google_calendar_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	var calendarId *string
	if user.Settings.CalendarSync.CalendarId != "" {
		calendarId = &user.Settings.CalendarSync.CalendarId
	}
	var id int
	err := u.db.QueryRow(ctx, query,
		user.Uid,
		user.Username,
		user.DisplayName,
		role,
		timezone,
		user.Settings.CalendarSync.Enabled,
		calendarId,
	).Scan(&id)
	if err != nil {
		log.Errorf("failed to create user: %v", err)
		return 0, err
	}
	return id, nil
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(u.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("user with id %d not found", id)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	return user, nil
}

func (u *UserRepoImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	user, err := scanUser(u.db.QueryRow(ctx, query, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Infof("user with uid %s not found", uid)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	return user, nil
}

func (u *UserRepoImpl) GetAllUsers(ctx context.Context) ([]User, error) {
	return u.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
}

func (u *UserRepoImpl) GetSyncEnabledUsers(ctx context.Context) ([]User, error) {
	return u.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE calendar_sync_enabled ORDER BY id`)
}

func (u *UserRepoImpl) queryUsers(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := u.db.Query(ctx, query, args...)
	if err != nil {
		log.Errorf("failed to get users: %v", err)
		return nil, err
	}
	defer rows.Close()
	users := make([]User, 0, 10)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			log.Errorf("failed to scan user: %v", err)
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over rows: %v", err)
		return nil, err
	}
	return users, nil
}

func (u *UserRepoImpl) UpdateCalendarSync(ctx context.Context, userId int, enabled bool, calendarId string) error {
	var calId *string
	if calendarId != "" {
		calId = &calendarId
	}
	result, err := u.db.Exec(ctx,
		`UPDATE users SET calendar_sync_enabled = $1, google_calendar_id = $2 WHERE id = $3`,
		enabled, calId, userId)
	if err != nil {
		return fmt.Errorf("could not update calendar sync settings: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (u *UserRepoImpl) SetSyncEnabled(ctx context.Context, userId int, enabled bool) error {
	result, err := u.db.Exec(ctx, `UPDATE users SET calendar_sync_enabled = $1 WHERE id = $2`, enabled, userId)
	if err != nil {
		return fmt.Errorf("could not update calendar sync flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (u *UserRepoImpl) SetLastSyncedAt(ctx context.Context, userId int, at time.Time) error {
	result, err := u.db.Exec(ctx, `UPDATE users SET last_calendar_sync_at = $1 WHERE id = $2`, at, userId)
	if err != nil {
		return fmt.Errorf("could not store last sync time: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
