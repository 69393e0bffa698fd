package services

import (
	"context"
	"sync"
	"time"

	"github.com/huddle-app/huddle-backend/internal/logger"
	"github.com/huddle-app/huddle-backend/internal/metrics"
	"github.com/huddle-app/huddle-backend/internal/models"
	"github.com/huddle-app/huddle-backend/internal/repository"
)

const defaultListenRetryDelay = time.Second

type inboxSource interface {
	Inbox(ctx context.Context, viewer Viewer) ([]models.Conversation, error)
}

type notificationSource interface {
	Listen(ctx context.Context, handle func(repository.MessageNotification)) error
}

// InboxFeed keeps live inbox subscriptions. Every relevant change triggers a
// full recompute for the affected viewers; snapshots are never diffed.
type InboxFeed struct {
	source     inboxSource
	metrics    *metrics.ChatMetrics
	log        *logger.Logger
	retryDelay time.Duration

	mu          sync.Mutex
	subscribers map[string]map[*inboxSubscription]struct{}
}

type inboxSubscription struct {
	viewer  Viewer
	deliver func([]models.Conversation)
	dirty   chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewInboxFeed(source inboxSource, chatMetrics *metrics.ChatMetrics, log *logger.Logger) *InboxFeed {
	return &InboxFeed{
		source:      source,
		metrics:     chatMetrics,
		log:         log,
		retryDelay:  defaultListenRetryDelay,
		subscribers: make(map[string]map[*inboxSubscription]struct{}),
	}
}

// Subscribe delivers the viewer's inbox immediately and after every change
// naming the viewer, until ctx ends or the returned func is called. deliver
// runs on the subscription's own goroutine and must not call the returned
// func itself.
func (f *InboxFeed) Subscribe(ctx context.Context, viewer Viewer, deliver func([]models.Conversation)) func() {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &inboxSubscription{
		viewer:  viewer,
		deliver: deliver,
		dirty:   make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	sub.dirty <- struct{}{}

	f.mu.Lock()
	set, ok := f.subscribers[viewer.ID]
	if !ok {
		set = make(map[*inboxSubscription]struct{})
		f.subscribers[viewer.ID] = set
	}
	set[sub] = struct{}{}
	f.mu.Unlock()
	f.metrics.SubscriberAdded()

	go f.run(subCtx, sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-sub.done
		})
	}
}

func (f *InboxFeed) run(ctx context.Context, sub *inboxSubscription) {
	defer func() {
		f.remove(sub)
		close(sub.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.dirty:
		}

		conversations, err := f.source.Inbox(ctx, sub.viewer)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.log.Error(f.log.WithUserID(ctx, sub.viewer.ID), "inbox refresh failed", err)
			continue
		}
		sub.deliver(conversations)
	}
}

func (f *InboxFeed) remove(sub *inboxSubscription) {
	f.mu.Lock()
	defer f.mu.Unlock()

	set, ok := f.subscribers[sub.viewer.ID]
	if !ok {
		return
	}
	if _, exists := set[sub]; !exists {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(f.subscribers, sub.viewer.ID)
	}
	f.metrics.SubscriberRemoved()
}

// Notify marks the inboxes of the given users dirty. Pending refreshes
// coalesce into one.
func (f *InboxFeed) Notify(userIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, userID := range userIDs {
		for sub := range f.subscribers[userID] {
			markDirty(sub)
		}
	}
}

func (f *InboxFeed) NotifyAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, set := range f.subscribers {
		for sub := range set {
			markDirty(sub)
		}
	}
}

func (f *InboxFeed) HandleNotification(notification repository.MessageNotification) {
	f.Notify(notification.Participants...)
}

func (f *InboxFeed) Subscribers(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[userID])
}

// Listen pumps store notifications into the feed until ctx ends, reconnecting
// after failures. Every subscriber is refreshed after a reconnect since
// notifications may have been missed.
func (f *InboxFeed) Listen(ctx context.Context, source notificationSource) error {
	for {
		err := source.Listen(ctx, f.HandleNotification)
		if ctx.Err() != nil {
			return nil
		}
		f.log.Error(ctx, "message listener stopped", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(f.retryDelay):
		}
		f.NotifyAll()
	}
}

func markDirty(sub *inboxSubscription) {
	select {
	case sub.dirty <- struct{}{}:
	default:
	}
}
