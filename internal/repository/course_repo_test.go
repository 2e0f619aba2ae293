package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/learnhub-api/internal/models"
)

func TestCourseRepositoryGetWithContentHidesDrafts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	fixture := seedCourse(t, db, 0, 2)
	draft := models.Lesson{ModuleID: fixture.Lessons[0].ModuleID, Title: "Draft", Position: 0, Published: false}
	require.NoError(t, db.Create(&draft).Error)

	course, err := repo.GetWithContent(ctx, fixture.Course.ID)
	require.NoError(t, err)
	require.Len(t, course.Modules, 1)
	require.Len(t, course.Modules[0].Lessons, 2)
	require.Equal(t, "Lesson 1", course.Modules[0].Lessons[0].Title)

	courseID, err := repo.GetLessonCourseID(ctx, fixture.Lessons[1].ID)
	require.NoError(t, err)
	require.Equal(t, fixture.Course.ID, courseID)

	_, err = repo.GetLessonCourseID(ctx, draft.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.GetLessonCourseID(ctx, 9999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCourseRepositoryListPublished(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	seedCourse(t, db, 10, 0)
	seedCourse(t, db, 20, 0)
	hidden := models.Course{Title: "Hidden", Published: false}
	require.NoError(t, db.Create(&hidden).Error)

	courses, total, err := repo.List(ctx, CourseFilter{Page: 1, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, courses, 1)

	_, err = repo.GetByID(ctx, hidden.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	matches, total, err := repo.List(ctx, CourseFilter{Search: "hidden"})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, matches)
}
