package sim

import "fmt"

// NoteLevel is the cosmetic grouping the renderer uses to color feedback
// messages. It is independent of the error taxonomy.
type NoteLevel string

const (
	NoteSuccess NoteLevel = "success"
	NoteError   NoteLevel = "error"
	NoteInfo    NoteLevel = "info"
)

// Note is a short human-readable message produced by every mutating call.
type Note struct {
	Level   NoteLevel `json:"level"`
	Message string    `json:"message"`
}

func SuccessNote(format string, args ...any) Note {
	return Note{Level: NoteSuccess, Message: fmt.Sprintf(format, args...)}
}

func ErrorNote(format string, args ...any) Note {
	return Note{Level: NoteError, Message: fmt.Sprintf(format, args...)}
}

func InfoNote(format string, args ...any) Note {
	return Note{Level: NoteInfo, Message: fmt.Sprintf(format, args...)}
}
