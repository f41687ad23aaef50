package main

import (
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/mcdev12/placehub/go/internal/dbconfig"
	"github.com/mcdev12/placehub/go/internal/eventbus"
	"github.com/mcdev12/placehub/go/internal/eventlog"
	"github.com/mcdev12/placehub/go/internal/events"
	"github.com/mcdev12/placehub/go/internal/image"
	"github.com/mcdev12/placehub/go/internal/integration"
	"github.com/mcdev12/placehub/go/internal/listing"
	"github.com/mcdev12/placehub/go/internal/review"
)

type Services struct {
	Listing *listing.Service
	Review  *review.Service
	Image   *image.Service

	Conn     *eventbus.PersistentConnection
	Bus      *eventbus.JetStreamBus
	EventLog *eventlog.Repository
	Listener *eventlog.Listener
	Health   *eventlog.HealthChecker
}

func setupServices(cfg *Config, dbcfg dbconfig.Config, database *sql.DB, cache *redis.Client) (*Services, error) {
	// Broker plumbing first: one persistent connection and one registry
	// shared by the bus and the outbox store's type resolution.
	registry := eventbus.NewSubscriptionRegistry()
	for name, factory := range events.Catalog() {
		registry.RegisterType(name, factory)
	}

	conn := eventbus.NewPersistentConnection(connectionConfig(cfg))
	bus := eventbus.NewJetStreamBus(conn, registry, busConfig(cfg))
	eventLog := eventlog.NewRepository(database, registry)

	// One outbox-aware event service per logical producer.
	listingEvents := integration.NewService("listing-api", eventLog, bus)
	reviewEvents := integration.NewService("review-api", eventLog, bus)
	imageEvents := integration.NewService("image-api", eventLog, bus)

	// Business services.
	listingRepo := listing.NewRepository(database, cache)
	listingSvc := listing.NewService(database, listingRepo, listingEvents)

	reviewRepo := review.NewRepository(database)
	reviewSvc := review.NewService(database, reviewRepo, reviewEvents)

	imageRepo := image.NewRepository(database)
	imageSvc := image.NewService(database, imageRepo, imageEvents)

	// Cross-service subscriptions.
	bus.Subscribe(events.TypePlaceReviewUpdated, "listing-review-stats",
		func() events.Event { return &events.PlaceReviewUpdatedEvent{} },
		listing.NewPlaceReviewUpdatedHandler(listingSvc))
	bus.Subscribe(events.TypeListingReviewGroupRetrieved, "listing-cache-warm",
		func() events.Event { return &events.ListingReviewGroupRetrievedEvent{} },
		listing.NewListingReviewGroupRetrievedHandler(listingRepo))
	bus.Subscribe(events.TypeListingVisited, "review-visit-tracking",
		func() events.Event { return &events.ListingVisitedEvent{} },
		review.NewListingVisitedHandler(reviewRepo))

	// Redelivery runs against its own outbox-aware service so sweeps are
	// attributed to it in the logs.
	redeliveryEvents := integration.NewService("redelivery", eventLog, bus)
	listener, err := eventlog.NewListener(listenerConfig(cfg, dbcfg), eventLog, redeliveryEvents)
	if err != nil {
		return nil, err
	}

	health := eventlog.NewHealthChecker(database, conn, eventLog, listener)

	return &Services{
		Listing:  listingSvc,
		Review:   reviewSvc,
		Image:    imageSvc,
		Conn:     conn,
		Bus:      bus,
		EventLog: eventLog,
		Listener: listener,
		Health:   health,
	}, nil
}
