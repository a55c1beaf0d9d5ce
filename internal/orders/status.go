package orders

import (
	"strings"

	"github.com/shopd/shopd/internal/apperr"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ValidStatuses is the full lifecycle set. Any status may move to any
// other; the permissive transition model is intentional.
var ValidStatuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusCancelled}

func ParseStatus(s string) (Status, error) {
	for _, v := range ValidStatuses {
		if Status(s) == v {
			return v, nil
		}
	}
	return "", apperr.Invalid("invalid status. Valid statuses: %s", statusList())
}

func statusList() string {
	names := make([]string, len(ValidStatuses))
	for i, v := range ValidStatuses {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}
