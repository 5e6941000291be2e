package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMService sends push notifications so agents without a live WebSocket
// still learn about dispatch events. A nil *FCMService is valid and means
// push is disabled.
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(credentialsFile string) (*FCMService, error) {
	return newFCMService(option.WithCredentialsFile(credentialsFile))
}

// NewFCMServiceFromBase64 creates a new FCM service instance from
// base64-encoded credentials, for cloud deployments where uploading a file
// is awkward.
func NewFCMServiceFromBase64(credentialsBase64 string) (*FCMService, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	return newFCMService(option.WithCredentialsJSON(credentialsJSON))
}

func newFCMService(opt option.ClientOption) (*FCMService, error) {
	ctx := context.Background()

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// SendAssignmentNotification notifies an agent's device about a newly
// created assignment.
func (s *FCMService) SendAssignmentNotification(token, assignmentID, clientName string) error {
	if s == nil {
		return nil
	}
	ctx := context.Background()

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "New Assignment",
			Body:  fmt.Sprintf("You have been assigned to visit %s.", clientName),
		},
		Data: map[string]string{
			"type":          "assignment",
			"assignment_id": assignmentID,
			"client_name":   clientName,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending FCM message: %w", err)
	}

	log.Printf("✅ FCM assignment notification sent: %s", response)
	return nil
}

// SendStatusUpdateNotification notifies a device about an assignment
// status change.
func (s *FCMService) SendStatusUpdateNotification(token, assignmentID, status string) error {
	if s == nil {
		return nil
	}
	ctx := context.Background()

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "Assignment Update",
			Body:  fmt.Sprintf("Assignment status changed to: %s", status),
		},
		Data: map[string]string{
			"type":          "status_update",
			"assignment_id": assignmentID,
			"status":        status,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending FCM message: %w", err)
	}

	log.Printf("✅ FCM status notification sent: %s", response)
	return nil
}
