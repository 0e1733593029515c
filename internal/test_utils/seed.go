package test_utils

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// InsertUser stores a user row and returns its id. It deliberately writes SQL
// directly so that package tests can seed data without importing each other.
func InsertUser(t *testing.T, db *pgxpool.Pool, username, role string, syncEnabled bool) int {
	t.Helper()
	var id int
	err := db.QueryRow(context.Background(),
		`INSERT INTO users (uid, username, display_name, role, calendar_sync_enabled)
		 VALUES ($1, $2, $2, $3, $4) RETURNING id`,
		uuid.NewString(), username, role, syncEnabled,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func InsertCourse(t *testing.T, db *pgxpool.Pool, name string, instructorId int) int {
	t.Helper()
	var id int
	err := db.QueryRow(context.Background(),
		`INSERT INTO course (name, instructor_id) VALUES ($1, $2) RETURNING id`, name, instructorId,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func Enroll(t *testing.T, db *pgxpool.Pool, courseId int, userIds ...int) {
	t.Helper()
	for _, userId := range userIds {
		_, err := db.Exec(context.Background(),
			`INSERT INTO enrollment (course_id, user_id) VALUES ($1, $2)`, courseId, userId)
		require.NoError(t, err)
	}
}

// InsertEvent stores a minimal timed event and returns its id.
func InsertEvent(t *testing.T, db *pgxpool.Pool, title, visibility string, creatorId int) int {
	t.Helper()
	var id int
	err := db.QueryRow(context.Background(),
		`INSERT INTO calendar_event (title, start_time, end_time, visibility, creator_id, creator_role)
		 VALUES ($1, now(), now() + interval '1 hour', $2, $3, 'INSTRUCTOR') RETURNING id`,
		title, visibility, creatorId,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
