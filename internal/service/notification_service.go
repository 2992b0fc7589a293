package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/karsu-its/ijara-api/internal/dto"
	"github.com/karsu-its/ijara-api/internal/models"
	"github.com/karsu-its/ijara-api/internal/observability"
	"github.com/karsu-its/ijara-api/internal/repository"
)

const notificationBufferSize = 16

// ErrNotificationNotFound signals that the entry does not exist or belongs
// to another user.
var ErrNotificationNotFound = errors.New("notification not found")

// Announcer fans a stored notification out to connected clients, on this
// node and across the cluster. It never persists anything.
type Announcer interface {
	Announce(notification models.Notification)
}

// NotificationService serves the student feed and streams new entries.
type NotificationService interface {
	Announcer
	PublishInfo(ctx context.Context, studentID, tutorID uint, title, message string) (dto.NotificationResponse, error)
	Feed(ctx context.Context, studentID uint, kind models.NotificationKind, limit, offset int) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id, studentID uint) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, studentID uint, kind models.NotificationKind) (int64, error)
	Delete(ctx context.Context, id, studentID uint) error
	Subscribe(studentID uint) (<-chan dto.NotificationResponse, func())
	TutorFeed(ctx context.Context, tutorID uint, limit, offset int) ([]dto.TutorNotificationResponse, error)
	MarkTutorRead(ctx context.Context, id, tutorID uint) (dto.TutorNotificationResponse, error)
	Start(ctx context.Context)
}

type notificationService struct {
	repo        repository.NotificationRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	broker      *notificationBroker
	nodeID      string
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	StudentID    uint                     `json:"student_id"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.NotificationResponse]struct{}
}

// NewNotificationService constructs a notification service.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
	}

	return &notificationService{
		repo:        repo,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		validator:   validate,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		tracer:      otel.Tracer("github.com/karsu-its/ijara-api/internal/service/notification"),
		sanitizer:   bluemonday.StrictPolicy(),
		broker: &notificationBroker{
			subscribers: make(map[uint]map[chan dto.NotificationResponse]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *notificationService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// PublishInfo stores a blue informational entry in the student's feed and
// streams it out. Verdict notifications never go through here; they are
// written transactionally next to their check or round.
func (s *notificationService) PublishInfo(ctx context.Context, studentID, tutorID uint, title, message string) (dto.NotificationResponse, error) {
	cleanMessage := strings.TrimSpace(s.sanitizer.Sanitize(message))
	if cleanMessage == "" {
		return dto.NotificationResponse{}, errors.New("notification message empty after sanitization")
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.publish_info", trace.WithAttributes(
		attribute.Int("notification.student_id", int(studentID)),
	))
	defer span.End()

	model := models.Notification{
		StudentID: studentID,
		TutorID:   tutorID,
		Kind:      models.NotificationReport,
		Color:     models.NotificationBlue,
		Title:     strings.TrimSpace(s.sanitizer.Sanitize(title)),
		Message:   cleanMessage,
	}

	if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	s.Announce(model)

	return dto.NewNotificationResponse(model), nil
}

// Announce fans an already persisted notification out to stream clients.
func (s *notificationService) Announce(notification models.Notification) {
	response := dto.NewNotificationResponse(notification)
	s.broker.broadcast(notification.StudentID, response)
	observability.NotificationsPublished().WithLabelValues(string(notification.Color)).Inc()

	if err := s.publish(context.Background(), notification.StudentID, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish notification to broker")
	}
}

func (s *notificationService) Feed(ctx context.Context, studentID uint, kind models.NotificationKind, limit, offset int) ([]dto.NotificationResponse, error) {
	notifications, err := s.repo.ListByStudent(ctx, studentID, kind, limit, offset)
	if err != nil {
		return nil, err
	}

	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, studentID uint) (dto.NotificationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.Int("notification.student_id", int(studentID)),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(spanCtx, id, studentID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		return dto.NotificationResponse{}, err
	}

	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, studentID uint, kind models.NotificationKind) (int64, error) {
	return s.repo.MarkAllRead(ctx, studentID, kind)
}

func (s *notificationService) Delete(ctx context.Context, id, studentID uint) error {
	if err := s.repo.DeleteByID(ctx, id, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

func (s *notificationService) Subscribe(studentID uint) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, notificationBufferSize)

	s.broker.subscribe(studentID, channel)
	observability.SSEClientsActive().Inc()

	cleanup := func() {
		s.broker.unsubscribe(studentID, channel)
		observability.SSEClientsActive().Dec()
	}

	return channel, cleanup
}

func (s *notificationService) TutorFeed(ctx context.Context, tutorID uint, limit, offset int) ([]dto.TutorNotificationResponse, error) {
	notifications, err := s.repo.ListByTutor(ctx, tutorID, limit, offset)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.TutorNotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, dto.NewTutorNotificationResponse(notification))
	}

	return responses, nil
}

func (s *notificationService) MarkTutorRead(ctx context.Context, id, tutorID uint) (dto.TutorNotificationResponse, error) {
	notification, err := s.repo.MarkTutorRead(ctx, id, tutorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TutorNotificationResponse{}, ErrNotificationNotFound
		}
		return dto.TutorNotificationResponse{}, err
	}

	return dto.NewTutorNotificationResponse(notification), nil
}

func (s *notificationService) publish(ctx context.Context, studentID uint, notification dto.NotificationResponse) error {
	event := notificationEvent{
		Source:       s.nodeID,
		StudentID:    studentID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "ijara-notifications", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (s *notificationService) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	observability.NotificationsPublished().WithLabelValues(event.Notification.Color).Inc()
	s.broker.broadcast(event.StudentID, event.Notification)
}

func (b *notificationBroker) subscribe(studentID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[studentID]; !exists {
		b.subscribers[studentID] = make(map[chan dto.NotificationResponse]struct{})
	}
	b.subscribers[studentID][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(studentID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[studentID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, studentID)
		}
	}
}

func (b *notificationBroker) broadcast(studentID uint, notification dto.NotificationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subscribers := b.subscribers[studentID]
	for ch := range subscribers {
		select {
		case ch <- notification:
		default:
		}
	}
}
