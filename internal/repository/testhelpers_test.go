package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/learnhub-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type courseFixture struct {
	Course  models.Course
	Lessons []models.Lesson
}

// seedCourse creates a published course with one module and the given number of published lessons.
func seedCourse(t *testing.T, db *gorm.DB, price float64, lessons int) courseFixture {
	t.Helper()
	course := models.Course{Title: fmt.Sprintf("Course %d", time.Now().UnixNano()), Price: price, Currency: "EGP", Published: true}
	require.NoError(t, db.Create(&course).Error)

	module := models.Module{CourseID: course.ID, Title: "Basics", Position: 1}
	require.NoError(t, db.Create(&module).Error)

	fixture := courseFixture{Course: course}
	for i := 0; i < lessons; i++ {
		lesson := models.Lesson{ModuleID: module.ID, Title: fmt.Sprintf("Lesson %d", i+1), Position: i + 1, Published: true}
		require.NoError(t, db.Create(&lesson).Error)
		fixture.Lessons = append(fixture.Lessons, lesson)
	}
	return fixture
}
