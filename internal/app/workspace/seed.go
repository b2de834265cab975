package workspace

import "time"

// SystemUserID authors the seeded tasks and the welcome message.
const SystemUserID = "system"

func seedTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultSeed returns the fixed state a workspace boots with: a system user, four starter
// tasks across the board and a welcome message.
func DefaultSeed() Snapshot {
	return Snapshot{
		Users: []User{
			{
				ID:         SystemUserID,
				Name:       "System",
				Status:     UserAway,
				LastActive: seedTime("2023-01-01T08:00:00Z"),
			},
		},
		Tasks: []Task{
			{
				ID:          "task-1",
				Title:       "Implement user authentication",
				Description: "Add login and registration functionality to the app",
				Status:      TaskTodo,
				CreatedBy:   SystemUserID,
				CreatedAt:   seedTime("2023-01-01T09:00:00Z"),
				UpdatedAt:   seedTime("2023-01-01T09:00:00Z"),
			},
			{
				ID:          "task-2",
				Title:       "Design dashboard layout",
				Description: "Create wireframes for the main dashboard",
				Status:      TaskInProgress,
				CreatedBy:   SystemUserID,
				CreatedAt:   seedTime("2023-01-01T10:00:00Z"),
				UpdatedAt:   seedTime("2023-01-01T14:30:00Z"),
			},
			{
				ID:          "task-3",
				Title:       "Fix responsive layout bugs",
				Description: "Address issues with mobile view",
				Status:      TaskInProgress,
				CreatedBy:   SystemUserID,
				CreatedAt:   seedTime("2023-01-01T11:00:00Z"),
				UpdatedAt:   seedTime("2023-01-01T16:45:00Z"),
			},
			{
				ID:          "task-4",
				Title:       "Update documentation",
				Description: "Add new API endpoints to the docs",
				Status:      TaskDone,
				CreatedBy:   SystemUserID,
				CreatedAt:   seedTime("2023-01-01T12:00:00Z"),
				UpdatedAt:   seedTime("2023-01-02T10:15:00Z"),
			},
		},
		Messages: []Message{
			{
				ID:        "msg-1",
				Text:      "Welcome to the collaborative workspace!",
				UserID:    SystemUserID,
				CreatedAt: seedTime("2023-01-01T08:00:00Z"),
			},
		},
	}
}
