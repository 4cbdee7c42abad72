package tui

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unowned-ai/alive/pkg/moments"
)

// timelineMsg carries the own moments grouped by day plus the stats header.
// warning is set when the last action only partly succeeded.
type timelineMsg struct {
	groups  []moments.DayGroup
	stats   moments.UserStats
	warning string
}

type feedMsg []moments.Moment

func loadTimeline(store *moments.Store) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		return timelineMsg{groups: store.Timeline(ctx), stats: store.Stats(ctx)}
	}
}

func loadFeed(store *moments.Store) tea.Cmd {
	return func() tea.Msg {
		return feedMsg(store.ListPublicMoments(context.Background()))
	}
}

func saveMoment(store *moments.Store, content string, tags []string, isPublic bool) tea.Cmd {
	return func() tea.Msg {
		_, err := store.SaveMoment(context.Background(), content, tags, isPublic, nil)
		if errors.Is(err, moments.ErrStreakNotUpdated) {
			msg := loadTimeline(store)().(timelineMsg)
			msg.warning = fmt.Sprintf("Warning: %v", err)
			return msg
		}
		if err != nil {
			return err
		}
		return loadTimeline(store)()
	}
}

func setPublic(store *moments.Store, id string, isPublic bool) tea.Cmd {
	return func() tea.Msg {
		if _, err := store.UpdateMoment(context.Background(), id, moments.Patch{IsPublic: &isPublic}); err != nil {
			return err
		}
		return loadTimeline(store)()
	}
}

func deleteMoment(store *moments.Store, id string) tea.Cmd {
	return func() tea.Msg {
		if _, err := store.DeleteMoment(context.Background(), id); err != nil {
			return err
		}
		return loadTimeline(store)()
	}
}

func sendSunshine(store *moments.Store, id string) tea.Cmd {
	return func() tea.Msg {
		feed, err := store.SendSunshine(context.Background(), id)
		if err != nil {
			return err
		}
		return feedMsg(feed)
	}
}

// Get database name and file path
func getDbPragmaList(db *sql.DB) (string, string) {
	var name, file string
	if db == nil {
		return name, file
	}
	err := db.QueryRow(`PRAGMA database_list`).Scan(new(int), &name, &file)
	if err != nil {
		return name, file
	}
	return name, file
}
