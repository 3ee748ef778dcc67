package journal

import "errors"

var (
	ErrJournal = errors.New("journal")
)
