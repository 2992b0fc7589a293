package dto

import (
	"time"

	"github.com/karsu-its/ijara-api/internal/models"
)

// NotificationPublishRequest is a tutor's manual feed entry for one of
// their students.
type NotificationPublishRequest struct {
	StudentID uint   `json:"student_id" validate:"required"`
	Title     string `json:"title" validate:"required,max=128"`
	Message   string `json:"message" validate:"required,max=1000"`
}

// NotificationResponse serializes one feed entry for a student.
// ApartmentID and PermissionID tie verdict entries back to the submission
// and round they verdict; NeedData tells the app the entry expects the
// student to send housing details.
type NotificationResponse struct {
	ID           uint      `json:"id"`
	Kind         string    `json:"kind"`
	Color        string    `json:"color"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	ApartmentID  *uint     `json:"apartment_id,omitempty"`
	PermissionID *uint     `json:"permission_id,omitempty"`
	NeedData     bool      `json:"need_data"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewNotificationResponse converts a Notification model into a DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	kind := model.Kind
	if kind == "" {
		kind = models.NotificationReport
	}

	return NotificationResponse{
		ID:           model.ID,
		Kind:         string(kind),
		Color:        string(model.Color),
		Title:        model.Title,
		Message:      model.Message,
		ApartmentID:  model.ApartmentID,
		PermissionID: model.PermissionID,
		NeedData:     model.NeedData,
		Read:         model.Read,
		CreatedAt:    model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts notification models into DTOs.
func NewNotificationResponseSlice(notifications []models.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, NewNotificationResponse(notification))
	}

	return responses
}

// TutorNotificationResponse serializes a bedroom submission alert.
type TutorNotificationResponse struct {
	ID        uint             `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
	Student   *StudentResponse `json:"student,omitempty"`
}

// NewTutorNotificationResponse converts a TutorNotification into a DTO.
func NewTutorNotificationResponse(model models.TutorNotification) TutorNotificationResponse {
	response := TutorNotificationResponse{
		ID:        model.ID,
		Title:     model.Title,
		Message:   model.Message,
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
	}

	if model.Student != nil && model.Student.ID != 0 {
		student := NewStudentResponse(*model.Student)
		response.Student = &student
	}

	return response
}

// ChatSendRequest posts one broadcast message over the websocket.
// Groups is optional; when empty the message goes to the connection's
// own group.
type ChatSendRequest struct {
	Body   string   `json:"body" validate:"required,min=1,max=4000"`
	Groups []string `json:"groups" validate:"omitempty,max=50,dive,required"`
}

// ChatHistoryQuery selects a page of broadcast history for one group.
type ChatHistoryQuery struct {
	GroupCode string     `json:"group_code" validate:"required"`
	Before    *time.Time `json:"before"`
	Limit     int        `json:"limit" validate:"min=1,max=200"`
}

// ChatEditRequest replaces the body of an earlier broadcast.
type ChatEditRequest struct {
	Body string `json:"body" validate:"required,min=1,max=4000"`
}

// ChatGroupRef names one addressed group inside a broadcast.
type ChatGroupRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ChatMessageResponse serializes one tutor broadcast.
type ChatMessageResponse struct {
	ID        uint           `json:"id"`
	TutorID   uint           `json:"tutor_id"`
	Body      string         `json:"body"`
	Groups    []ChatGroupRef `json:"groups"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewChatMessageResponse converts a ChatMessage model into a DTO.
func NewChatMessageResponse(model models.ChatMessage) ChatMessageResponse {
	groups := make([]ChatGroupRef, 0, len(model.Groups))
	for _, ref := range model.Groups {
		groups = append(groups, ChatGroupRef{Code: ref.Code, Name: ref.Name})
	}

	return ChatMessageResponse{
		ID:        model.ID,
		TutorID:   model.TutorID,
		Body:      model.Body,
		Groups:    groups,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// NewChatMessageResponseSlice converts chat models into DTOs.
func NewChatMessageResponseSlice(messages []models.ChatMessage) []ChatMessageResponse {
	responses := make([]ChatMessageResponse, 0, len(messages))
	for _, message := range messages {
		responses = append(responses, NewChatMessageResponse(message))
	}

	return responses
}
