package project

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskIsOverdue(t *testing.T) {
	now := time.Date(2025, 9, 16, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 1)
	today := time.Date(2025, 9, 16, 0, 0, 0, 0, time.UTC)

	assert.False(t, (&Task{Status: TaskTodo}).IsOverdue(now), "no due date")
	assert.True(t, (&Task{Status: TaskTodo, DueDate: &past}).IsOverdue(now))
	assert.False(t, (&Task{Status: TaskTodo, DueDate: &future}).IsOverdue(now))
	assert.False(t, (&Task{Status: TaskTodo, DueDate: &today}).IsOverdue(now), "due today")
	assert.False(t, (&Task{Status: TaskCompleted, DueDate: &past}).IsOverdue(now))
	assert.False(t, (&Task{Status: TaskArchived, DueDate: &past}).IsOverdue(now))
}

func TestHoursFromSeconds(t *testing.T) {
	assert.Equal(t, 0.0, HoursFromSeconds(0))
	assert.Equal(t, 1.5, HoursFromSeconds(5400))
	assert.Equal(t, 0.33, HoursFromSeconds(1200))
}

func TestCompletion(t *testing.T) {
	est := 4.0
	pct, ok := Completion(1, &est)
	assert.True(t, ok)
	assert.Equal(t, 25, pct)

	pct, ok = Completion(10, &est)
	assert.True(t, ok)
	assert.Equal(t, 100, pct, "capped at 100")

	_, ok = Completion(1, nil)
	assert.False(t, ok)

	zero := 0.0
	_, ok = Completion(1, &zero)
	assert.False(t, ok)
}
