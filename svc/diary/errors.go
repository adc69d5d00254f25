package diary

import "errors"

var (
	ErrEntryNotFound      = errors.New("diary.errors.entry_not_found")
	ErrEmptyText          = errors.New("diary.errors.empty_text")
	ErrInvalidMood        = errors.New("diary.errors.invalid_mood")
	ErrFailedToSaveRecord = errors.New("diary.errors.failed_to_save_record")
)
