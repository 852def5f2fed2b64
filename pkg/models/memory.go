package models

import "time"

// MemoryEntry is a persistent fact the assistant has been told to remember.
type MemoryEntry struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Category    string    `json:"category"`
	AccessCount int64     `json:"access_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MemoryStats summarizes the memory store.
type MemoryStats struct {
	Entries    int64 `json:"entries"`
	Categories int64 `json:"categories"`
}
