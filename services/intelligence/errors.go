package ai

import "fmt"

// Dialogue error codes carried in logs and the chat error body.
const (
	CodeRepository = "REPOSITORY_ERROR"
	CodeContext    = "CONTEXT_ERROR"
	CodeFallback   = "FALLBACK_ERROR"
)

// DialogueError wraps a collaborator failure inside a turn. The user never
// sees it; the engine turns it into an apology reply.
type DialogueError struct {
	Code    string
	Message string
	Err     error
}

func (e *DialogueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DialogueError) Unwrap() error {
	return e.Err
}

func repositoryError(msg string, err error) *DialogueError {
	return &DialogueError{Code: CodeRepository, Message: msg, Err: err}
}

func contextError(msg string, err error) *DialogueError {
	return &DialogueError{Code: CodeContext, Message: msg, Err: err}
}

func fallbackError(msg string, err error) *DialogueError {
	return &DialogueError{Code: CodeFallback, Message: msg, Err: err}
}
