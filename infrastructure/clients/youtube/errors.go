package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"channel-insight/domain/model"

	"google.golang.org/api/googleapi"
)

func reasons(gerr *googleapi.Error) map[string]bool {
	out := make(map[string]bool, len(gerr.Errors))
	for _, item := range gerr.Errors {
		out[item.Reason] = true
	}
	return out
}

func isCommentsDisabled(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && reasons(gerr)["commentsDisabled"]
}

// classifyError maps API failures onto the sync error taxonomy
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		r := reasons(gerr)
		switch {
		case r["quotaExceeded"] || r["dailyLimitExceeded"]:
			return fmt.Errorf("failed to %s: %w: %w", op, model.ErrQuotaExceeded, err)
		case gerr.Code == http.StatusNotFound || r["videoNotFound"] || r["channelNotFound"]:
			return fmt.Errorf("failed to %s: %w: %w", op, model.ErrNotFound, err)
		case gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError ||
			r["rateLimitExceeded"] || r["userRateLimitExceeded"]:
			return fmt.Errorf("failed to %s: %w: %w", op, model.ErrTransientNetwork, err)
		}
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to %s: %w: %w", op, model.ErrTransientNetwork, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
