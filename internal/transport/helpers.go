package transport

import (
	"errors"
	"io"
	"log"

	"github.com/glebkin/imgpipe/internal/model"
	"github.com/glebkin/imgpipe/internal/pipeline"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500):
		return 500
	case errors.Is(err, model.ErrJobNotFound),
		errors.Is(err, model.ErrResultNotReady),
		errors.Is(err, model.ErrJobFailed):
		return 404
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrEmptySource),
		errors.Is(err, model.ErrEmptyWMark),
		errors.Is(err, model.ErrBadConfig),
		errors.Is(err, model.ErrIncorrectState),
		errors.Is(err, pipeline.ErrInvalidFormat),
		errors.Is(err, pipeline.ErrInvalidParameter):
		return 400
	case errors.Is(err, pipeline.ErrOutOfBounds),
		errors.Is(err, pipeline.ErrDecode):
		return 422
	default:
		return 500
	}
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		log.Println("Handler failed to close fileflow:", err)
	}
}
