package commands

import (
	"errors"
	"log/slog"
)

type printedError struct {
	err error
}

func (e printedError) Error() string {
	// Intentionally hide the original error: the JSON error response is the output.
	return "error already printed"
}

func (e printedError) Unwrap() error { return e.err }

// cmdErr logs err once and marks it so Execute does not log it again.
func cmdErr(err error) error {
	if err == nil {
		return nil
	}
	var pe printedError
	if errors.As(err, &pe) {
		return err
	}
	slog.Error("command error", "error", err.Error())
	return printedError{err: err}
}
