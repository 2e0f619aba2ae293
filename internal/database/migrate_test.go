package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/learnhub-api/internal/models"
)

func TestMigrateEnforcesSingleCurrentEnrollment(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	course := models.Course{Title: "Go", Price: 10, Published: true}
	require.NoError(t, db.Create(&course).Error)

	first := models.Enrollment{StudentID: "s1", CourseID: course.ID, EnrollmentDate: time.Now(), Status: models.EnrollmentStatusActive, PaymentStatus: models.PaymentStatusPending}
	require.NoError(t, db.Create(&first).Error)

	duplicate := models.Enrollment{StudentID: "s1", CourseID: course.ID, EnrollmentDate: time.Now(), Status: models.EnrollmentStatusActive, PaymentStatus: models.PaymentStatusPending}
	require.Error(t, db.Create(&duplicate).Error)

	require.NoError(t, db.Model(&first).Update("payment_status", models.PaymentStatusCancelled).Error)

	again := models.Enrollment{StudentID: "s1", CourseID: course.ID, EnrollmentDate: time.Now(), Status: models.EnrollmentStatusActive, PaymentStatus: models.PaymentStatusPending}
	require.NoError(t, db.Create(&again).Error)
}
