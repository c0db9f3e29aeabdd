// Package sensor ingests seat occupancy readings from physical sensors over
// MQTT and applies them through the same path as the HTTP seat handler, so
// sensor updates produce seat logs and scheduler resets identically.
package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nguyenthanhak8-hue/LSTD/internal/models"
)

// Topic shape: kiosk/<tenxa-slug>/seats/<seat-id>
const topicFilter = "kiosk/+/seats/+"

const applyTimeout = 5 * time.Second

type reading struct {
	Occupied  bool      `json:"occupied"`
	Timestamp time.Time `json:"timestamp"`
}

// SeatUpdater applies an occupancy update; implemented by the queue engine.
type SeatUpdater interface {
	SetSeatOccupancy(ctx context.Context, tenantID, seatID int64, occupied bool) (models.Seat, error)
}

// SlugResolver maps tenant slugs from sensor topics to tenant ids.
type SlugResolver interface {
	ResolveSlug(ctx context.Context, slug string) (int64, error)
}

type Listener struct {
	client  mqtt.Client
	updater SeatUpdater
	tenants SlugResolver
	logger  *slog.Logger
}

// NewListener connects to the broker and subscribes to seat readings.
func NewListener(brokerURL, clientID string, updater SeatUpdater, tenants SlugResolver, logger *slog.Logger) (*Listener, error) {
	l := &Listener{updater: updater, tenants: tenants, logger: logger}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOnConnectHandler(func(client mqtt.Client) {
			token := client.Subscribe(topicFilter, 1, l.handleMessage)
			token.Wait()
			if err := token.Error(); err != nil {
				logger.Error("mqtt subscribe failed", "topic", topicFilter, "error", err)
				return
			}
			logger.Info("seat sensor listener subscribed", "topic", topicFilter)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	l.client = client
	return l, nil
}

func (l *Listener) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	slug, seatID, err := parseTopic(msg.Topic())
	if err != nil {
		l.logger.Warn("seat sensor topic rejected", "topic", msg.Topic(), "error", err)
		return
	}

	var r reading
	if err := json.Unmarshal(msg.Payload(), &r); err != nil {
		l.logger.Warn("seat sensor payload rejected", "topic", msg.Topic(), "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()

	tenantID, err := l.tenants.ResolveSlug(ctx, slug)
	if err != nil {
		l.logger.Warn("seat sensor unknown tenant", "tenxa", slug, "error", err)
		return
	}

	seat, err := l.updater.SetSeatOccupancy(ctx, tenantID, seatID, r.Occupied)
	if err != nil {
		l.logger.Error("seat sensor update failed",
			slog.Int64("seat_id", seatID), slog.Int64("tenxa_id", tenantID), "error", err)
		return
	}
	l.logger.Debug("seat sensor update applied",
		slog.Int64("seat_id", seat.ID), slog.Bool("occupied", seat.Occupied))
}

// Stop disconnects from the broker, waiting briefly for in-flight work.
func (l *Listener) Stop() {
	l.client.Disconnect(250)
}

func parseTopic(topic string) (string, int64, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "kiosk" || parts[2] != "seats" {
		return "", 0, fmt.Errorf("unexpected topic shape %q", topic)
	}
	seatID, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("seat id %q: %w", parts[3], err)
	}
	return parts[1], seatID, nil
}
