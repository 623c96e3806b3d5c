package notify

import (
	"testing"

	"job-scorer/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFormatNotification(t *testing.T) {
	n := &models.Notification{
		AccountID: "acc-1",
		Type:      models.NotificationTypeJobMatch,
		Title:     "New job match: 82%",
		Message:   `Your profile scored 82% against "Senior React Engineer" at Acme.`,
		DedupeKey: "posting:p1",
	}

	got := FormatNotification(n)
	assert.Contains(t, got, "New job match: 82%")
	assert.Contains(t, got, "Senior React Engineer")
	assert.Contains(t, got, "Account: acc-1")
}
