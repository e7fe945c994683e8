package repository

import "errors"

// ErrConflict reports that a concurrent writer won a compare-and-set.
var ErrConflict = errors.New("concurrent update")
