package admin

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/fedbridge/db"
	"github.com/deemkeen/fedbridge/domain"
	"github.com/deemkeen/fedbridge/ui/common"
	"log"
)

const (
	tabFollowers = iota
	tabActivity

	loadLimit    = 200
	itemsPerPage = 15
)

var (
	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			MarginBottom(0)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

// Model is the read-only admin console: one tab for follower
// relationships, one for the activity log.
type Model struct {
	Tab        int
	Followers  []domain.Follower
	Activities []domain.Activity
	Offset     int
	Width      int
	Height     int
}

func InitialModel(width, height int) Model {
	return Model{
		Tab:    tabFollowers,
		Offset: 0,
		Width:  width,
		Height: height,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(loadFollowers(), loadActivities())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case followersLoadedMsg:
		m.Followers = msg.followers
		return m, nil

	case activitiesLoadedMsg:
		m.Activities = msg.activities
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.Tab = (m.Tab + 1) % 2
			m.Offset = 0
		case "r":
			return m, tea.Batch(loadFollowers(), loadActivities())
		case "up", "k":
			if m.Offset > 0 {
				m.Offset--
			}
		case "down", "j":
			if m.Offset < m.listLen()-1 {
				m.Offset++
			}
		}
	}
	return m, nil
}

func (m Model) listLen() int {
	if m.Tab == tabFollowers {
		return len(m.Followers)
	}
	return len(m.Activities)
}

func (m Model) View() string {
	var s strings.Builder

	if m.Tab == tabFollowers {
		s.WriteString(common.CaptionStyle.Render(fmt.Sprintf("followers (%d)", len(m.Followers))))
		s.WriteString("\n\n")
		s.WriteString(m.viewFollowers())
	} else {
		s.WriteString(common.CaptionStyle.Render(fmt.Sprintf("activity log (%d)", len(m.Activities))))
		s.WriteString("\n\n")
		s.WriteString(m.viewActivities())
	}

	s.WriteString("\n\n")
	s.WriteString(common.HelpStyle.Render("tab: switch view • j/k: scroll • r: reload • q: quit"))
	return s.String()
}

func (m Model) viewFollowers() string {
	var s strings.Builder

	if len(m.Followers) == 0 {
		s.WriteString(emptyStyle.Render("No follower relationships recorded yet."))
		return s.String()
	}

	start, end := pageBounds(m.Offset, len(m.Followers))
	for i := start; i < end; i++ {
		follower := m.Followers[i]
		line := fmt.Sprintf("• %s → %s", follower.Src, follower.Dest)
		if follower.Status == domain.FollowerInactive {
			line = line + " (inactive)"
			s.WriteString(itemStyle.Render(common.FadedStyle.Render(line)))
		} else {
			s.WriteString(itemStyle.Render(line))
		}
		s.WriteString("\n")
	}

	return s.String()
}

func (m Model) viewActivities() string {
	var s strings.Builder

	if len(m.Activities) == 0 {
		s.WriteString(emptyStyle.Render("No activities logged yet."))
		return s.String()
	}

	start, end := pageBounds(m.Offset, len(m.Activities))
	for i := start; i < end; i++ {
		activity := m.Activities[i]
		s.WriteString(itemStyle.Render(fmt.Sprintf(
			"• %s  %s  %s → %d domain(s)",
			activity.CreatedAt.Format("2006-01-02 15:04"),
			activity.Direction,
			activity.Source,
			len(activity.Domains),
		)))
		s.WriteString("\n")
	}

	return s.String()
}

func pageBounds(offset, total int) (int, int) {
	start := offset
	if start > total {
		start = total
	}
	end := start + itemsPerPage
	if end > total {
		end = total
	}
	return start, end
}

type followersLoadedMsg struct {
	followers []domain.Follower
}

type activitiesLoadedMsg struct {
	activities []domain.Activity
}

func loadFollowers() tea.Cmd {
	return func() tea.Msg {
		err, followers := db.GetDB().ReadRecentFollowers(loadLimit)
		if err != nil {
			log.Printf("Failed to load followers: %v", err)
			return followersLoadedMsg{followers: []domain.Follower{}}
		}
		if followers == nil {
			return followersLoadedMsg{followers: []domain.Follower{}}
		}
		return followersLoadedMsg{followers: *followers}
	}
}

func loadActivities() tea.Cmd {
	return func() tea.Msg {
		err, activities := db.GetDB().ReadRecentActivities(loadLimit)
		if err != nil {
			log.Printf("Failed to load activities: %v", err)
			return activitiesLoadedMsg{activities: []domain.Activity{}}
		}
		if activities == nil {
			return activitiesLoadedMsg{activities: []domain.Activity{}}
		}
		return activitiesLoadedMsg{activities: *activities}
	}
}
