package events

import (
	"testing"

	"campuspark/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishReachesSubscribers(t *testing.T) {
	bus := NewBus()

	var got []models.DomainEvent
	bus.Subscribe(func(ev models.DomainEvent) { got = append(got, ev) })
	bus.Subscribe(func(ev models.DomainEvent) { got = append(got, ev) })

	bus.Publish(models.DomainEvent{Type: models.EventParkingTaken, ParkingSpace: "P1"})

	require.Len(t, got, 2)
	assert.Equal(t, "P1", got[0].ParkingSpace)
	assert.Equal(t, models.EventParkingTaken, got[1].Type)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsubscribe := bus.Subscribe(func(models.DomainEvent) { calls++ })

	bus.Publish(models.DomainEvent{Type: models.EventParkingVerified})
	unsubscribe()
	unsubscribe()
	bus.Publish(models.DomainEvent{Type: models.EventParkingVerified})

	assert.Equal(t, 1, calls)
}

func TestBus_HandlerMaySubscribeDuringPublish(t *testing.T) {
	bus := NewBus()

	bus.Subscribe(func(models.DomainEvent) {
		bus.Subscribe(func(models.DomainEvent) {})
	})

	assert.NotPanics(t, func() {
		bus.Publish(models.DomainEvent{Type: models.EventParkingTaken})
	})
}
