package course

import "errors"

var ErrCourseNotFound = errors.New("course not found")

type Course struct {
	Id           int
	Name         string
	InstructorId int
}

// Roster is the membership of one course: its instructor and enrolled students.
type Roster struct {
	CourseId     int
	InstructorId int
	StudentIds   map[int]struct{}
}

func NewRoster(courseId, instructorId int, studentIds ...int) Roster {
	students := make(map[int]struct{}, len(studentIds))
	for _, id := range studentIds {
		students[id] = struct{}{}
	}
	return Roster{CourseId: courseId, InstructorId: instructorId, StudentIds: students}
}

func (r Roster) IsInstructor(userId int) bool {
	return r.InstructorId != 0 && r.InstructorId == userId
}

func (r Roster) IsStudent(userId int) bool {
	_, ok := r.StudentIds[userId]
	return ok
}
