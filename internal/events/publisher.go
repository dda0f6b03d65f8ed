package events

import (
	"encoding/json"
	"time"

	"catalog-service/internal/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	streamName = "CATALOG_EVENTS"

	SubjectSyncCompleted      = "catalog.sync.completed"
	SubjectBomEntryCreated    = "bom.entry.created"
	SubjectBomEntrySwitched   = "bom.entry.switched"
	SubjectBomRefreshReported = "bom.refresh.reported"
)

// Publisher emits domain events over NATS JetStream. A nil Publisher is
// valid and drops everything, so the service runs without a broker.
type Publisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Logger
}

// NewPublisher connects to NATS and ensures the catalog event stream exists.
func NewPublisher(url string, logger *logrus.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("catalog-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{"catalog.>", "bom.>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		nc.Close()
		return nil, err
	}

	return &Publisher{nc: nc, js: js, logger: logger}, nil
}

func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Close()
}

type syncCompletedEvent struct {
	Timestamp time.Time          `json:"timestamp"`
	Result    *models.SyncResult `json:"result"`
}

func (p *Publisher) PublishSyncCompleted(result *models.SyncResult) {
	p.publish(SubjectSyncCompleted, syncCompletedEvent{Timestamp: time.Now().UTC(), Result: result})
}

type bomEntryEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	FloorplanID uuid.UUID `json:"floorplanId"`
	BomEntryID  uuid.UUID `json:"bomEntryId"`
	VariantID   uuid.UUID `json:"variantId"`
}

func (p *Publisher) PublishBomEntryCreated(floorplanID, entryID, variantID uuid.UUID) {
	p.publish(SubjectBomEntryCreated, bomEntryEvent{
		Timestamp:   time.Now().UTC(),
		FloorplanID: floorplanID,
		BomEntryID:  entryID,
		VariantID:   variantID,
	})
}

func (p *Publisher) PublishBomEntrySwitched(floorplanID, entryID, variantID uuid.UUID) {
	p.publish(SubjectBomEntrySwitched, bomEntryEvent{
		Timestamp:   time.Now().UTC(),
		FloorplanID: floorplanID,
		BomEntryID:  entryID,
		VariantID:   variantID,
	})
}

func (p *Publisher) PublishBomRefreshReport(report *models.BomRefreshReport) {
	p.publish(SubjectBomRefreshReported, report)
}

// publish is fire-and-forget. Event delivery is best-effort and never fails
// the operation that triggered it.
func (p *Publisher) publish(subject string, payload interface{}) {
	if p == nil || p.js == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to marshal event payload")
		return
	}

	if _, err := p.js.Publish(subject, data); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
	}
}
