package journal

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by journal operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing operation, a rejection, or a recovered value.
// GoldDelta is signed: rewards and grants are positive, purchases negative.
type OperationLog struct {
	Operation   string
	EntryID     EntryID
	ItemID      ItemID
	GoldDelta   int
	GoldBalance int
	Streak      int
	Key         string
	Detail      string
	Status      string
	Error       error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

func logOperation(ctx context.Context, logger OperationLogger, entry OperationLog) {
	if logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	logger.LogOperation(ctx, entry)
}
