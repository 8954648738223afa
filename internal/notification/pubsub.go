package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	authdomain "taskmind-backend/internal/auth/domain"
	authrepo "taskmind-backend/internal/auth/repository"
	"taskmind-backend/internal/worker"
)

// GmailNotification is the payload Gmail publishes on watch updates
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// GmailSyncer runs an incremental mailbox sync for one user
type GmailSyncer interface {
	SyncUser(ctx context.Context, user *authdomain.User) error
}

// JobQueue accepts background jobs
type JobQueue interface {
	Submit(job worker.Job) bool
}

// PubSubListener pulls Gmail watch notifications from a Pub/Sub subscription
// and turns them into background sync jobs.
type PubSubListener struct {
	pubsubClient *pubsub.Client
	userRepo     authrepo.UserRepository
	syncer       GmailSyncer
	jobs         JobQueue
	projectID    string
	topicName    string
	subName      string

	// Deduplication: track last historyId per user, Gmail redelivers freely
	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

func NewPubSubListener(projectID, topicName, credentialsFile string, userRepo authrepo.UserRepository, syncer GmailSyncer, jobs JobQueue) (*PubSubListener, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &PubSubListener{
		pubsubClient:  client,
		userRepo:      userRepo,
		syncer:        syncer,
		jobs:          jobs,
		projectID:     projectID,
		topicName:     topicName,
		subName:       topicName + "-sub", // Convention: topic-sub
		lastHistoryID: make(map[string]uint64),
	}, nil
}

// Start blocks receiving messages until ctx is cancelled
func (l *PubSubListener) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting listener with topic: %s, subscription: %s", l.topicName, l.subName)

	sub := l.pubsubClient.Subscription(l.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := l.pubsubClient.Topic(l.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, cannot create subscription", l.topicName)
			return
		}

		sub, err = l.pubsubClient.CreateSubscription(ctx, l.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", l.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", l.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		l.HandleNotification(msg.Data)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

// HandleNotification processes one raw Gmail notification payload. Shared by
// the pull listener and the push webhook endpoint.
func (l *PubSubListener) HandleNotification(data []byte) {
	var notification GmailNotification
	if err := json.Unmarshal(data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	log.Printf("[PubSub] Notification for %s (historyId: %d)", notification.EmailAddress, notification.HistoryID)

	user, err := l.userRepo.FindByEmail(notification.EmailAddress)
	if err != nil {
		log.Printf("[PubSub] Error finding user by email %s: %v", notification.EmailAddress, err)
		return
	}
	if user == nil {
		log.Printf("[PubSub] No user for email: %s", notification.EmailAddress)
		return
	}

	l.mu.Lock()
	lastHID, seen := l.lastHistoryID[user.ID]
	if seen && notification.HistoryID <= lastHID {
		l.mu.Unlock()
		log.Printf("[PubSub] Skipping duplicate notification for user %s (historyId %d <= last %d)",
			user.ID, notification.HistoryID, lastHID)
		return
	}
	l.lastHistoryID[user.ID] = notification.HistoryID
	l.mu.Unlock()

	submitted := l.jobs.Submit(worker.Job{
		Name: "gmail-sync:" + user.ID,
		Run: func(ctx context.Context) {
			if err := l.syncer.SyncUser(ctx, user); err != nil {
				log.Printf("[PubSub] Gmail sync failed for user %s: %v", user.ID, err)
			}
		},
	})
	if !submitted {
		// The per-user lock plus the stored history cursor make a dropped
		// job harmless: the next notification catches up.
		log.Printf("[PubSub] Sync job dropped for user %s", user.ID)
	}
}
