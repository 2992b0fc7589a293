package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
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
	"github.com/karsu-its/ijara-api/internal/middleware"
	"github.com/karsu-its/ijara-api/internal/models"
	"github.com/karsu-its/ijara-api/internal/observability"
	"github.com/karsu-its/ijara-api/internal/repository"
)

const (
	chatRedisTTL       = 30 * time.Minute
	chatSendBufferSize = 32
)

var (
	// ErrChatNotAuthorised indicates the caller is not allowed to act on
	// that group room or message.
	ErrChatNotAuthorised = errors.New("not authorised for chat room")
	// ErrChatMessageNotFound indicates the broadcast does not exist or
	// belongs to another tutor.
	ErrChatMessageNotFound = errors.New("chat message not found")
)

// ChatConnectionOptions wraps metadata extracted during the HTTP upgrade.
type ChatConnectionOptions struct {
	UserID        uint
	Role          string
	GroupCode     string
	CorrelationID string
	Context       context.Context
}

// ChatService manages the tutor broadcast channel: websocket rooms per
// group plus the persisted history behind them.
type ChatService interface {
	ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions)
	Authorise(ctx context.Context, userID uint, role, groupCode string) error
	History(ctx context.Context, query dto.ChatHistoryQuery) ([]dto.ChatMessageResponse, error)
	MyMessages(ctx context.Context, tutorID uint, limit int) ([]dto.ChatMessageResponse, error)
	Edit(ctx context.Context, tutorID, messageID uint, payload dto.ChatEditRequest) (dto.ChatMessageResponse, error)
	DeleteByGroup(ctx context.Context, tutorID uint, groupCode string) (int64, error)
	DeleteAll(ctx context.Context, tutorID uint) (int64, error)
	Start(ctx context.Context)
}

type chatService struct {
	repo        repository.ChatRepository
	students    repository.StudentRepository
	tutors      repository.TutorRepository
	push        PushSender
	redis       *redis.Client
	redisStream string
	redisCache  string
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	hub         *chatHub
	nodeID      string
}

// chatHub keeps track of active websocket clients per group room.
type chatHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*chatClient]struct{}
	log   zerolog.Logger
}

type chatClient struct {
	conn    *websocket.Conn
	send    chan dto.ChatMessageResponse
	options ChatConnectionOptions
	service *chatService
	closed  chan struct{}
	once    sync.Once
	baseCtx context.Context
}

type chatEvent struct {
	Source  string                  `json:"source"`
	Message dto.ChatMessageResponse `json:"message"`
	SentAt  time.Time               `json:"sent_at"`
}

// NewChatService creates the websocket broadcast service.
func NewChatService(repo repository.ChatRepository, students repository.StudentRepository, tutors repository.TutorRepository, push PushSender, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) ChatService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	hub := &chatHub{
		rooms: make(map[string]map[*chatClient]struct{}),
		log:   logger.With().Str("component", "chat_hub").Logger(),
	}

	tracer := otel.Tracer("github.com/karsu-its/ijara-api/internal/service/chat")

	streamChannel := ""
	cachePrefix := ""
	natsSubject := ""
	if channelBase != "" {
		streamChannel = channelBase + ":chat"
		cachePrefix = channelBase + ":chat:last"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".chat"
	}

	return &chatService{
		repo:        repo,
		students:    students,
		tutors:      tutors,
		push:        push,
		redis:       redisClient,
		redisStream: streamChannel,
		redisCache:  cachePrefix,
		nats:        natsConn,
		natsSubject: natsSubject,
		validator:   validate,
		logger:      logger.With().Str("component", "chat_service").Logger(),
		tracer:      tracer,
		sanitizer:   sanitizer,
		hub:         hub,
		nodeID:      uuid.NewString(),
	}
}

func (s *chatService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// Authorise checks room membership before the websocket upgrade. A
// student may only join the room of their own group; a tutor may join
// any group they oversee.
func (s *chatService) Authorise(ctx context.Context, userID uint, role, groupCode string) error {
	if groupCode == "" {
		return ErrChatNotAuthorised
	}

	switch role {
	case middleware.RoleTutor:
		tutor, err := s.tutors.GetByID(ctx, userID)
		if err != nil {
			return ErrChatNotAuthorised
		}
		if !tutorOversees(tutor, groupCode) {
			return ErrChatNotAuthorised
		}
		return nil
	case middleware.RoleStudent:
		student, err := s.students.GetByID(ctx, userID)
		if err != nil {
			return ErrChatNotAuthorised
		}
		if student.GroupCode != groupCode {
			return ErrChatNotAuthorised
		}
		return nil
	default:
		return ErrChatNotAuthorised
	}
}

func (s *chatService) ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := &chatClient{
		conn:    conn,
		send:    make(chan dto.ChatMessageResponse, chatSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
		baseCtx: baseCtx,
	}

	s.hub.register(client)
	observability.ChatConnections().Inc()

	if last := s.fetchLastMessage(baseCtx, opts.GroupCode); last != nil {
		select {
		case client.send <- *last:
		default:
			s.logger.Debug().Str("group_code", opts.GroupCode).Msg("dropping cached chat message due to slow consumer")
		}
	}

	go client.writer()
	client.reader()
}

func (s *chatService) History(ctx context.Context, query dto.ChatHistoryQuery) ([]dto.ChatMessageResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	before := time.Time{}
	if query.Before != nil {
		before = *query.Before
	}

	messages, err := s.repo.HistoryByGroup(ctx, query.GroupCode, before, query.Limit)
	if err != nil {
		return nil, err
	}

	return dto.NewChatMessageResponseSlice(messages), nil
}

func (s *chatService) MyMessages(ctx context.Context, tutorID uint, limit int) ([]dto.ChatMessageResponse, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	messages, err := s.repo.ListByTutor(ctx, tutorID, limit)
	if err != nil {
		return nil, err
	}

	return dto.NewChatMessageResponseSlice(messages), nil
}

func (s *chatService) Edit(ctx context.Context, tutorID, messageID uint, payload dto.ChatEditRequest) (dto.ChatMessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ChatMessageResponse{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(payload.Body))
	if clean == "" {
		return dto.ChatMessageResponse{}, fmt.Errorf("message body empty after sanitization")
	}

	message, err := s.repo.UpdateBody(ctx, messageID, tutorID, clean)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ChatMessageResponse{}, ErrChatMessageNotFound
		}
		return dto.ChatMessageResponse{}, err
	}

	response := dto.NewChatMessageResponse(message)
	for _, ref := range message.Groups {
		s.cacheLastMessage(ctx, ref.Code, response)
	}
	s.broadcast(response)
	if err := s.publish(ctx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish chat edit")
	}

	return response, nil
}

func (s *chatService) DeleteByGroup(ctx context.Context, tutorID uint, groupCode string) (int64, error) {
	tutor, err := s.tutors.GetByID(ctx, tutorID)
	if err != nil {
		return 0, err
	}
	if !tutorOversees(tutor, groupCode) {
		return 0, ErrChatNotAuthorised
	}

	removed, err := s.repo.DeleteByGroup(ctx, tutorID, groupCode)
	if err != nil {
		return 0, err
	}

	s.dropCachedMessage(ctx, groupCode)
	return removed, nil
}

func (s *chatService) DeleteAll(ctx context.Context, tutorID uint) (int64, error) {
	tutor, err := s.tutors.GetByID(ctx, tutorID)
	if err != nil {
		return 0, err
	}

	removed, err := s.repo.DeleteAllByTutor(ctx, tutorID)
	if err != nil {
		return 0, err
	}

	for _, ref := range tutor.Groups {
		s.dropCachedMessage(ctx, ref.Code)
	}
	return removed, nil
}

func (s *chatService) processSend(ctx context.Context, client *chatClient, correlation string, payload dto.ChatSendRequest) (dto.ChatMessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ChatMessageResponse{}, err
	}

	if client.options.Role != middleware.RoleTutor {
		return dto.ChatMessageResponse{}, ErrChatNotAuthorised
	}

	tutor, err := s.tutors.GetByID(ctx, client.options.UserID)
	if err != nil {
		return dto.ChatMessageResponse{}, err
	}

	groups, err := resolveBroadcastGroups(tutor, client.options.GroupCode, payload.Groups)
	if err != nil {
		return dto.ChatMessageResponse{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(payload.Body))
	if clean == "" {
		return dto.ChatMessageResponse{}, fmt.Errorf("message body empty after sanitization")
	}

	attrs := []attribute.KeyValue{
		attribute.Int("chat.tutor_id", int(client.options.UserID)),
		attribute.Int("chat.group_count", len(groups)),
	}
	if correlation != "" {
		attrs = append(attrs, attribute.String("correlation_id", correlation))
	}

	spanCtx, span := s.tracer.Start(ctx, "chat.broadcast", trace.WithAttributes(attrs...))
	defer span.End()

	model := models.ChatMessage{
		TutorID: client.options.UserID,
		Body:    clean,
		Groups:  groups,
	}

	if err := s.repo.Save(spanCtx, &model); err != nil {
		span.RecordError(err)
		return dto.ChatMessageResponse{}, err
	}

	response := dto.NewChatMessageResponse(model)
	for _, ref := range groups {
		s.cacheLastMessage(spanCtx, ref.Code, response)
	}
	s.broadcast(response)
	if err := s.publish(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish chat event")
	}
	s.notifyGroups(spanCtx, tutor, groups, clean)

	observability.ChatMessages().WithLabelValues("tutor").Inc()

	return response, nil
}

// resolveBroadcastGroups maps requested group codes onto the tutor's
// assignment list, defaulting to the connection's own room. Every
// requested code must belong to the tutor.
func resolveBroadcastGroups(tutor models.Tutor, roomCode string, requested []string) ([]models.GroupRef, error) {
	codes := requested
	if len(codes) == 0 {
		codes = []string{roomCode}
	}

	assigned := make(map[string]models.GroupRef, len(tutor.Groups))
	for _, ref := range tutor.Groups {
		assigned[ref.Code] = ref
	}

	seen := make(map[string]struct{}, len(codes))
	groups := make([]models.GroupRef, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		ref, ok := assigned[code]
		if !ok {
			return nil, ErrChatNotAuthorised
		}
		seen[code] = struct{}{}
		groups = append(groups, ref)
	}

	if len(groups) == 0 {
		return nil, ErrChatNotAuthorised
	}
	return groups, nil
}

func (s *chatService) notifyGroups(ctx context.Context, tutor models.Tutor, groups []models.GroupRef, body string) {
	title := tutor.FullName
	if title == "" {
		title = "Tutor"
	}

	for _, ref := range groups {
		students, err := s.students.ListByGroupCode(ctx, ref.Code)
		if err != nil {
			s.logger.Warn().Err(err).Str("group_code", ref.Code).Msg("failed to load group roster for chat push")
			continue
		}
		for _, student := range students {
			if student.FCMToken == "" {
				continue
			}
			if err := s.push.Send(ctx, student.FCMToken, title, body); err != nil {
				s.logger.Warn().Err(err).Uint("student_id", student.ID).Msg("failed to push chat message")
			}
		}
	}
}

func (s *chatService) cacheLastMessage(ctx context.Context, groupCode string, message dto.ChatMessageResponse) {
	if s.redis == nil || s.redisCache == "" {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal chat message for cache")
		return
	}

	key := fmt.Sprintf("%s:%s", s.redisCache, groupCode)
	if err := s.redis.Set(ctx, key, payload, chatRedisTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache chat message")
	}
}

func (s *chatService) dropCachedMessage(ctx context.Context, groupCode string) {
	if s.redis == nil || s.redisCache == "" {
		return
	}

	key := fmt.Sprintf("%s:%s", s.redisCache, groupCode)
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to drop cached chat message")
	}
}

func (s *chatService) fetchLastMessage(ctx context.Context, groupCode string) *dto.ChatMessageResponse {
	if s.redis == nil || s.redisCache == "" {
		return nil
	}

	key := fmt.Sprintf("%s:%s", s.redisCache, groupCode)
	result, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return nil
	}

	var message dto.ChatMessageResponse
	if err := json.Unmarshal([]byte(result), &message); err != nil {
		s.logger.Warn().Err(err).Msg("failed to unmarshal cached chat message")
		return nil
	}

	return &message
}

func (s *chatService) broadcast(message dto.ChatMessageResponse) {
	for _, ref := range message.Groups {
		s.hub.broadcast(ref.Code, message)
	}
}

func (s *chatService) publish(ctx context.Context, message dto.ChatMessageResponse) error {
	event := chatEvent{
		Source:  s.nodeID,
		Message: message,
		SentAt:  time.Now().UTC(),
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

func (s *chatService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("chat redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *chatService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "ijara-chat", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats chat subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain chat nats subscription")
		}
	}()
}

func (s *chatService) handleEvent(data []byte) {
	var event chatEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid chat event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	observability.ChatMessages().WithLabelValues("tutor").Inc()
	s.broadcast(event.Message)
}

func (h *chatHub) register(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := client.options.GroupCode
	if _, exists := h.rooms[room]; !exists {
		h.rooms[room] = make(map[*chatClient]struct{})
	}
	h.rooms[room][client] = struct{}{}
	h.log.Debug().Str("group_code", room).Uint("user_id", client.options.UserID).Msg("chat client connected")
}

func (h *chatHub) unregister(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := client.options.GroupCode
	if clients, ok := h.rooms[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	h.log.Debug().Str("group_code", room).Uint("user_id", client.options.UserID).Msg("chat client disconnected")
}

func (h *chatHub) broadcast(groupCode string, message dto.ChatMessageResponse) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.rooms[groupCode]
	for client := range clients {
		select {
		case client.send <- message:
		default:
			h.log.Warn().Str("group_code", groupCode).Uint("user_id", client.options.UserID).Msg("dropping chat message for slow client")
		}
	}
}

func (c *chatClient) reader() {
	defer c.close()

	connCtx := c.baseCtx
	if connCtx == nil {
		connCtx = context.Background()
	}
	correlation := c.options.CorrelationID
	if correlation == "" {
		correlation = middleware.CorrelationIDFromContext(connCtx)
	}

	for {
		var payload dto.ChatSendRequest
		if err := c.conn.ReadJSON(&payload); err != nil {
			c.service.logger.Debug().Err(err).Msg("chat read loop ended")
			return
		}

		response, err := c.service.processSend(connCtx, c, correlation, payload)
		if err != nil {
			c.service.logger.Warn().Err(err).Msg("failed to process chat message")
			continue
		}

		select {
		case <-c.closed:
			return
		default:
		}

		if !roomAddressed(response, c.options.GroupCode) {
			select {
			case c.send <- response:
			default:
				c.service.logger.Warn().Msg("sender queue full, dropping ack message")
			}
		}
	}
}

// roomAddressed reports whether the broadcast already reaches the room
// the sender is connected to, in which case the hub delivers the ack.
func roomAddressed(message dto.ChatMessageResponse, groupCode string) bool {
	for _, ref := range message.Groups {
		if ref.Code == groupCode {
			return true
		}
	}
	return false
}

func (c *chatClient) writer() {
	defer c.close()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *chatClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
	})
}
