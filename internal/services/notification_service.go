package services

import (
	"log"
	"sync"
	"time"

	"bizdesk/internal/models"
	"bizdesk/internal/utils"
)

// NotificationSink persists one in-app notification row.
type NotificationSink interface {
	Create(n *models.Notification) (int64, error)
}

// NotificationService performs the fan-out: one notification per distinct
// recipient, sends issued concurrently, and a failed recipient never
// affects the others. Delivery channels beyond the stored row (email,
// telegram, sms) are best-effort.
type NotificationService struct {
	sink      NotificationSink
	directory DirectoryService
	email     EmailService
	telegram  *TelegramService
	sms       *utils.Client
}

func NewNotificationService(sink NotificationSink, directory DirectoryService, email EmailService, telegram *TelegramService, sms *utils.Client) *NotificationService {
	return &NotificationService{
		sink:      sink,
		directory: directory,
		email:     email,
		telegram:  telegram,
		sms:       sms,
	}
}

// NotifyAssignees computes the distinct set of non-empty assignee ids
// across the proposal's stages and dispatches one notification to each.
// All sends are issued concurrently; the call returns when every send has
// settled.
func (s *NotificationService) NotifyAssignees(p *models.Proposal, title, message, link string) {
	if p == nil {
		return
	}
	seen := map[string]bool{}
	var ids []string
	for _, st := range p.Stages {
		id := st.AssigneeID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			s.NotifyUser(userID, title, message, link)
		}(id)
	}
	wg.Wait()
}

// NotifyUser delivers one notification to one recipient. Errors are
// logged per-channel and never propagated: a lost notification must not
// abort the triggering action.
func (s *NotificationService) NotifyUser(userID, title, message, link string) {
	if userID == "" {
		return
	}

	if s.sink != nil {
		n := &models.Notification{
			UserID:    userID,
			Title:     title,
			Message:   message,
			Link:      link,
			Type:      "proposal",
			CreatedAt: time.Now(),
		}
		if _, err := s.sink.Create(n); err != nil {
			log.Printf("[notify] user=%s: запись уведомления не удалась: %v", userID, err)
		}
	}

	if s.directory == nil {
		return
	}
	user, err := s.directory.GetUserByID(userID)
	if err != nil || user == nil {
		log.Printf("[notify] user=%s: не найден в справочнике: %v", userID, err)
		return
	}

	if s.email != nil && user.Email != "" {
		if err := s.email.SendProposalNotification(user.Email, title, message, link); err != nil {
			log.Printf("[notify] user=%s: email не отправлен: %v", userID, err)
		}
	}
	if s.telegram != nil && user.TelegramChatID != 0 {
		if err := s.telegram.SendMessage(user.TelegramChatID, title+"\n"+message); err != nil {
			log.Printf("[notify] user=%s: telegram не отправлен: %v", userID, err)
		}
	}
	if s.sms != nil && user.Phone != "" {
		if _, err := s.sms.SendSMS(user.Phone, title); err != nil {
			log.Printf("[notify] user=%s: sms не отправлена: %v", userID, err)
		}
	}
}
