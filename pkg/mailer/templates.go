package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

var enrollmentConfirmedTemplate = template.Must(template.New("enrollment_confirmed").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Helvetica, Arial, sans-serif; color: #1f2937;">
  <h2>Welcome to {{.CourseTitle}}</h2>
  <p>Hi {{.StudentName}},</p>
  <p>Your payment of {{.Amount}} {{.Currency}} was received and your enrollment is now active.</p>
  <p>Reference: {{.Reference}}</p>
</body>
</html>`))

// EnrollmentConfirmation carries the values rendered into the confirmation email.
type EnrollmentConfirmation struct {
	StudentName  string
	StudentEmail string
	CourseTitle  string
	Amount       string
	Currency     string
	Reference    string
}

// NewEnrollmentConfirmation renders the payment confirmation message.
func NewEnrollmentConfirmation(data EnrollmentConfirmation) (Message, error) {
	var body bytes.Buffer
	if err := enrollmentConfirmedTemplate.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render confirmation: %w", err)
	}

	return Message{
		ToEmail:   data.StudentEmail,
		ToName:    data.StudentName,
		Subject:   fmt.Sprintf("Enrollment confirmed: %s", data.CourseTitle),
		PlainText: fmt.Sprintf("Hi %s, your payment of %s %s was received and your enrollment in %s is active. Reference: %s", data.StudentName, data.Amount, data.Currency, data.CourseTitle, data.Reference),
		HTML:      body.String(),
	}, nil
}
