package cache

import "errors"

var ErrProfileNotFound = errors.New("profile not found")
