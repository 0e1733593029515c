package course

import (
	"context"
	"sort"
	"sync"
)

type RepositoryStub struct {
	mu      sync.RWMutex
	courses map[int]Course
	rosters map[int]Roster
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		courses: make(map[int]Course),
		rosters: make(map[int]Roster),
	}
}

// AddCourse registers a course with its instructor and enrolled students.
func (r *RepositoryStub) AddCourse(c Course, studentIds ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.courses[c.Id] = c
	r.rosters[c.Id] = NewRoster(c.Id, c.InstructorId, studentIds...)
}

func (r *RepositoryStub) Unenroll(courseId, userId int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if roster, ok := r.rosters[courseId]; ok {
		delete(roster.StudentIds, userId)
	}
}

func (r *RepositoryStub) GetCourse(ctx context.Context, courseId int) (Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.courses[courseId]
	if !ok {
		return Course{}, ErrCourseNotFound
	}
	return c, nil
}

func (r *RepositoryStub) GetRosters(ctx context.Context, courseIds []int) (map[int]Roster, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[int]Roster, len(courseIds))
	for _, id := range courseIds {
		roster, ok := r.rosters[id]
		if !ok {
			continue
		}
		students := make(map[int]struct{}, len(roster.StudentIds))
		for s := range roster.StudentIds {
			students[s] = struct{}{}
		}
		result[id] = Roster{CourseId: roster.CourseId, InstructorId: roster.InstructorId, StudentIds: students}
	}
	return result, nil
}

func (r *RepositoryStub) GetUserCourseIds(ctx context.Context, userId int) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []int
	for id, roster := range r.rosters {
		if roster.IsInstructor(userId) || roster.IsStudent(userId) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}
