package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// Logger - то, куда пишется информация о панике.
type Logger interface {
	WithFields(fields logrus.Fields) *logrus.Entry
}

// RecoveryHandler запускает фоновые горутины и перехватывает в них panic.
type RecoveryHandler struct {
	logger Logger
}

// NewRecoveryHandler создает обработчик поверх logrus.
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// Go запускает fn под именем name. Паника логируется вместе со стеком и не роняет процесс.
func (rh *RecoveryHandler) Go(ctx context.Context, name string, fn func(context.Context)) {
	go rh.run(ctx, name, fn)
}

func (rh *RecoveryHandler) run(ctx context.Context, name string, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			rh.logger.WithFields(logrus.Fields{
				"goroutine": name,
				"panic":     r,
				"stack":     string(debug.Stack()),
			}).Error("goroutine: паника в фоновой задаче")
		}
	}()
	fn(ctx)
}
