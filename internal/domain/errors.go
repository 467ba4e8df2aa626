package domain

import "errors"

var (
	ErrEntryNotFound   = errors.New("entry not found")
	ErrIndexOutOfRange = errors.New("entry index out of range")
	ErrCorruptData     = errors.New("stored entries could not be decoded")
	ErrPersist         = errors.New("failed to persist entries")
	ErrPhotoNotFound   = errors.New("photo not found")
)
