package poll

import "errors"

var (
	// ErrPollAlreadyActive is returned when a poll is created while another is running
	ErrPollAlreadyActive = errors.New("a poll is already active")
	// ErrEmptyQuestion is returned when a poll has no question text
	ErrEmptyQuestion = errors.New("question is required")
	// ErrNoOptions is returned when a poll has no options to vote for
	ErrNoOptions = errors.New("at least one option is required")
	// ErrInvalidTimer is returned when the timer is not a positive number of seconds
	ErrInvalidTimer = errors.New("timer must be a positive number of seconds")
)
