package analyses

import "errors"

var (
	ErrNotFound  = errors.New("analysis not found")
	ErrDuplicate = errors.New("analysis already exists for source record")
)
