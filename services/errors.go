package services

import (
	"context"
	"errors"

	apperrors "github.com/Templasan/MarketPlacer/common/errors"
	"github.com/Templasan/MarketPlacer/repository"
	"go.uber.org/zap"
)

// storageFailure passes application errors through and turns anything else into
// an IO error, logging the cause.
func storageFailure(log *zap.Logger, msg string, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, repository.ErrConcurrentUpdate) {
		log.Warn(msg, zap.Error(err))
		return apperrors.Conflict("the request conflicted with a concurrent update, retry")
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn(msg, zap.Error(err))
		return apperrors.IO("request timed out", err)
	}
	log.Error(msg, zap.Error(err))
	return apperrors.IO(msg, err)
}

func clampPage(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
