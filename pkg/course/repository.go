package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	GetCourse(ctx context.Context, courseId int) (Course, error)
	// GetRosters returns rosters of the given courses keyed by course id.
	// Unknown course ids are absent from the result.
	GetRosters(ctx context.Context, courseIds []int) (map[int]Roster, error)
	// GetUserCourseIds returns the courses the user instructs or is enrolled in.
	GetUserCourseIds(ctx context.Context, userId int) ([]int, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) GetCourse(ctx context.Context, courseId int) (Course, error) {
	var c Course
	var instructorId sql.NullInt64
	err := r.db.QueryRow(ctx, `SELECT id, name, instructor_id FROM course WHERE id = $1`, courseId).
		Scan(&c.Id, &c.Name, &instructorId)
	if errors.Is(err, pgx.ErrNoRows) {
		return Course{}, ErrCourseNotFound
	} else if err != nil {
		err := fmt.Errorf("could not query course: %w", err)
		log.Error(err)
		return Course{}, err
	}
	c.InstructorId = int(instructorId.Int64)
	return c, nil
}

func (r *RepositoryImpl) GetRosters(ctx context.Context, courseIds []int) (map[int]Roster, error) {
	rosters := make(map[int]Roster, len(courseIds))
	if len(courseIds) == 0 {
		return rosters, nil
	}

	query := `SELECT c.id, c.instructor_id, e.user_id
			  FROM course c
			  LEFT JOIN enrollment e ON e.course_id = c.id
			  WHERE c.id = ANY($1)`
	rows, err := r.db.Query(ctx, query, courseIds)
	if err != nil {
		err := fmt.Errorf("could not query course rosters: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var courseId int
		var instructorId, studentId sql.NullInt64
		if err := rows.Scan(&courseId, &instructorId, &studentId); err != nil {
			err := fmt.Errorf("could not scan roster row: %w", err)
			log.Error(err)
			return nil, err
		}
		roster, ok := rosters[courseId]
		if !ok {
			roster = NewRoster(courseId, int(instructorId.Int64))
		}
		if studentId.Valid {
			roster.StudentIds[int(studentId.Int64)] = struct{}{}
		}
		rosters[courseId] = roster
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return rosters, nil
}

func (r *RepositoryImpl) GetUserCourseIds(ctx context.Context, userId int) ([]int, error) {
	query := `SELECT id FROM course WHERE instructor_id = $1
			  UNION
			  SELECT course_id FROM enrollment WHERE user_id = $1`
	rows, err := r.db.Query(ctx, query, userId)
	if err != nil {
		err := fmt.Errorf("could not query user courses: %w", err)
		log.Error(err)
		return nil, err
	}
	courseIds, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		err := fmt.Errorf("could not collect user courses: %w", err)
		log.Error(err)
		return nil, err
	}
	return courseIds, nil
}
