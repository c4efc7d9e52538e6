package logger

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Log - общий логгер процесса. До вызова Init пишет в stderr с уровнем Info.
var Log = logrus.New()

// Init настраивает уровень и формат логов.
// В production пишем JSON, в остальных окружениях - читаемый текст.
func Init(level string, production bool) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if production {
		Log.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// WithJob возвращает запись лога с привязкой к заказу.
func WithJob(jobID uuid.UUID) *logrus.Entry {
	return Log.WithField("job_id", jobID.String())
}

// WithSweep возвращает запись лога для периодической проверки.
func WithSweep(name string) *logrus.Entry {
	return Log.WithField("sweep", name)
}
