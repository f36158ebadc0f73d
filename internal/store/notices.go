package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"workb-agent/internal/apiclient"
	"workb-agent/internal/broadcast"
	"workb-agent/internal/model"
	"workb-agent/internal/realtime"
)

// NoticesState is the notice store's broadcast value.
type NoticesState struct {
	Notices     []model.Notice `json:"notices"`
	UnreadCount int            `json:"unreadCount"`
	IsLoading   bool           `json:"isLoading"`
}

// Notices tracks workspace announcements and the local read markers.
type Notices struct {
	api      *apiclient.Client
	realtime Realtime
	demo     bool
	hub      *broadcast.Hub[NoticesState]
	unsubs   []func()
}

func NewNotices(api *apiclient.Client, rt Realtime, demo bool) *Notices {
	return &Notices{
		api:      api,
		realtime: rt,
		demo:     demo,
		hub:      broadcast.NewHub(NoticesState{}, func(a, b NoticesState) bool { return false }),
	}
}

func (n *Notices) Snapshot() NoticesState {
	return n.hub.Snapshot()
}

func (n *Notices) Subscribe(fn func(NoticesState)) (NoticesState, func()) {
	return n.hub.Subscribe(fn)
}

func unreadCount(notices []model.Notice) int {
	count := 0
	for _, notice := range notices {
		if !notice.IsRead {
			count++
		}
	}
	return count
}

func cloneNotices(notices []model.Notice) []model.Notice {
	out := make([]model.Notice, len(notices))
	copy(out, notices)
	return out
}

// sortNotices orders pinned notices first, newest first within each group.
func sortNotices(notices []model.Notice) {
	sort.SliceStable(notices, func(i, j int) bool {
		if notices[i].IsPinned != notices[j].IsPinned {
			return notices[i].IsPinned
		}
		return notices[i].CreatedAt.After(notices[j].CreatedAt)
	})
}

// FetchNotices reloads the announcement list from the backend.
func (n *Notices) FetchNotices(ctx context.Context) error {
	n.hub.Apply(func(prev NoticesState) NoticesState {
		prev.IsLoading = true
		return prev
	})

	if n.demo {
		n.hub.Apply(func(prev NoticesState) NoticesState {
			prev.IsLoading = false
			prev.UnreadCount = unreadCount(prev.Notices)
			return prev
		})
		return nil
	}

	var notices []model.Notice
	if err := n.api.Get(ctx, "/notices", &notices); err != nil {
		n.hub.Apply(func(prev NoticesState) NoticesState {
			prev.IsLoading = false
			return prev
		})
		return fmt.Errorf("failed to fetch notices: %w", err)
	}

	sortNotices(notices)
	n.hub.Apply(func(prev NoticesState) NoticesState {
		prev.Notices = notices
		prev.UnreadCount = unreadCount(notices)
		prev.IsLoading = false
		return prev
	})
	return nil
}

// MarkAsRead flags one notice read. The backend accepts the write first;
// local state only changes on success. Unknown ids are ignored.
func (n *Notices) MarkAsRead(ctx context.Context, id string) error {
	found := false
	for _, notice := range n.hub.Snapshot().Notices {
		if notice.ID == id {
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	if !n.demo {
		if err := n.api.Patch(ctx, "/notices/"+id+"/read", nil, nil); err != nil {
			return fmt.Errorf("failed to mark notice read: %w", err)
		}
	}
	n.hub.Apply(func(prev NoticesState) NoticesState {
		notices := cloneNotices(prev.Notices)
		for i := range notices {
			if notices[i].ID == id {
				notices[i].IsRead = true
			}
		}
		prev.Notices = notices
		prev.UnreadCount = unreadCount(notices)
		return prev
	})
	return nil
}

// MarkAllAsRead flags every notice read, backend first.
func (n *Notices) MarkAllAsRead(ctx context.Context) error {
	if !n.demo {
		if err := n.api.Patch(ctx, "/notices/read-all", nil, nil); err != nil {
			return fmt.Errorf("failed to mark all notices read: %w", err)
		}
	}
	n.hub.Apply(func(prev NoticesState) NoticesState {
		notices := cloneNotices(prev.Notices)
		for i := range notices {
			notices[i].IsRead = true
		}
		prev.Notices = notices
		prev.UnreadCount = 0
		return prev
	})
	return nil
}

func (n *Notices) insert(notice model.Notice) {
	n.hub.Apply(func(prev NoticesState) NoticesState {
		for _, existing := range prev.Notices {
			if existing.ID == notice.ID {
				return prev
			}
		}
		prev.Notices = append([]model.Notice{notice}, prev.Notices...)
		sortNotices(prev.Notices)
		prev.UnreadCount = unreadCount(prev.Notices)
		return prev
	})
}

// SetupRealtimeListeners keeps the list in sync with server pushes. Update
// and delete events for an unknown id are ignored.
func (n *Notices) SetupRealtimeListeners() {
	onCreated := func(data json.RawMessage) {
		var notice model.Notice
		if err := json.Unmarshal(data, &notice); err != nil {
			log.Printf("notices: malformed notice event: %v", err)
			return
		}
		n.insert(notice)
	}
	// The server historically emitted both names for new notices.
	unsubNew := n.realtime.On(realtime.EventNoticeNew, onCreated)
	unsubCreated := n.realtime.On(realtime.EventNoticeCreated, onCreated)

	unsubUpdated := n.realtime.On(realtime.EventNoticeUpdated, func(data json.RawMessage) {
		var notice model.Notice
		if err := json.Unmarshal(data, &notice); err != nil {
			log.Printf("notices: malformed notice event: %v", err)
			return
		}
		n.hub.Apply(func(prev NoticesState) NoticesState {
			notices := cloneNotices(prev.Notices)
			for i := range notices {
				if notices[i].ID == notice.ID {
					wasRead := notices[i].IsRead
					notices[i] = notice
					notices[i].IsRead = wasRead
					sortNotices(notices)
					break
				}
			}
			prev.Notices = notices
			prev.UnreadCount = unreadCount(notices)
			return prev
		})
	})

	unsubDeleted := n.realtime.On(realtime.EventNoticeDeleted, func(data json.RawMessage) {
		var payload struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			log.Printf("notices: malformed notice event: %v", err)
			return
		}
		n.hub.Apply(func(prev NoticesState) NoticesState {
			kept := make([]model.Notice, 0, len(prev.Notices))
			for _, notice := range prev.Notices {
				if notice.ID != payload.ID {
					kept = append(kept, notice)
				}
			}
			prev.Notices = kept
			prev.UnreadCount = unreadCount(prev.Notices)
			return prev
		})
	})

	n.unsubs = append(n.unsubs, unsubNew, unsubCreated, unsubUpdated, unsubDeleted)
}

func (n *Notices) CleanupListeners() {
	for _, unsub := range n.unsubs {
		unsub()
	}
	n.unsubs = nil
}
