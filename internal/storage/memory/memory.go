// Package memory keeps users, transcripts and tutorials in process memory.
package memory

import "github.com/rtzll/tutorly/internal"

// NewStore returns a Store backed by fresh in-memory repositories
func NewStore() internal.Store {
	return internal.Store{
		Users:       NewUserRepository(),
		Transcripts: NewTranscriptRepository(),
		Tutorials:   NewTutorialRepository(),
	}
}
