package usecase

import (
	"context"
	"time"

	"medqueue-portal/internal/domain/entity"

	"github.com/sirupsen/logrus"
)

const DefaultFallbackTime = "09:00"

type SlotSource interface {
	AvailableSlots(ctx context.Context, doctorID entity.ID, date string) ([]entity.Slot, error)
}

// SlotResolver lists slots for a doctor and date and picks the time a new
// booking is assigned.
type SlotResolver interface {
	ResolveSlots(ctx context.Context, doctorID entity.ID, date string) []entity.Slot
	DefaultTime(slots []entity.Slot, date, today time.Time) string
}

type SlotPolicy struct {
	// FallbackTime is used when no slot is listed for today.
	FallbackTime string
	// FutureFallback applies FallbackTime to future dates too.
	FutureFallback bool
}

type slotResolver struct {
	source SlotSource
	log    *logrus.Logger
	policy SlotPolicy
}

func NewSlotResolver(source SlotSource, log *logrus.Logger, policy SlotPolicy) SlotResolver {
	if policy.FallbackTime == "" {
		policy.FallbackTime = DefaultFallbackTime
	}
	return &slotResolver{
		source: source,
		log:    log,
		policy: policy,
	}
}

// ResolveSlots never fails; errors degrade to an empty list.
func (r *slotResolver) ResolveSlots(ctx context.Context, doctorID entity.ID, date string) []entity.Slot {
	slots, err := r.source.AvailableSlots(ctx, doctorID, date)
	if err != nil {
		r.log.Warnf("Failed to fetch slots for doctor %s on %s: %+v", doctorID, date, err)
		return []entity.Slot{}
	}
	return slots
}

// DefaultTime returns the first listed slot. With no usable slot it returns
// the fallback for today, and for future dates when FutureFallback is set.
// Past dates get no time.
func (r *slotResolver) DefaultTime(slots []entity.Slot, date, today time.Time) string {
	if len(slots) > 0 {
		if key := slots[0].Key(); key != "" {
			return key
		}
	}
	switch {
	case isSameDay(date, today):
		return r.policy.FallbackTime
	case !isDateInPast(date, today) && r.policy.FutureFallback:
		return r.policy.FallbackTime
	default:
		return ""
	}
}
