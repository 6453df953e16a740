package bootstrap

import (
	"io"
	"testing"

	"medqueue-portal/internal/usecase"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type nopRegistry struct {
	usecase.SessionRegistry
}

func TestScheduleScopeSweep(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	t.Run("valid spec", func(t *testing.T) {
		scheduler := cron.New()
		assert.NoError(t, scheduleScopeSweep(scheduler, scopeSweepSpec, nopRegistry{}, log))
		assert.Len(t, scheduler.Entries(), 1)
	})

	t.Run("invalid spec fails startup", func(t *testing.T) {
		scheduler := cron.New()
		err := scheduleScopeSweep(scheduler, "@every tuesday", nopRegistry{}, log)
		assert.ErrorContains(t, err, "failed to schedule session scope sweep")
		assert.Empty(t, scheduler.Entries())
	})
}
