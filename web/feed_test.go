package web

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/deemkeen/fedbridge/domain"
	"github.com/google/uuid"
)

type mockFeedStore struct {
	byDomain map[string][]domain.Activity
	recent   []domain.Activity
	err      error
}

func (m *mockFeedStore) ReadActivitiesByDomain(userDomain string, limit int) (error, *[]domain.Activity) {
	if m.err != nil {
		return m.err, nil
	}
	activities := m.byDomain[userDomain]
	return nil, &activities
}

func (m *mockFeedStore) ReadRecentActivities(limit int) (error, *[]domain.Activity) {
	if m.err != nil {
		return m.err, nil
	}
	return nil, &m.recent
}

func testActivity(source string) domain.Activity {
	return domain.Activity{
		Id:        uuid.New(),
		Direction: domain.DirectionIn,
		Protocol:  domain.ProtocolActivityPub,
		Source:    source,
		Domains:   []string{"user.example.com"},
		Body:      `{"type": "Create", "content": "hello"}`,
		Status:    domain.StatusComplete,
		CreatedAt: time.Now(),
	}
}

func TestGetFeedByDomain(t *testing.T) {
	store := &mockFeedStore{
		byDomain: map[string][]domain.Activity{
			"user.example.com": {testActivity("https://mastodon.example/activities/1")},
		},
	}

	rss, err := GetFeed(webTestConf(), "user.example.com", store)
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}

	if !strings.Contains(rss, "<rss") {
		t.Error("Expected RSS output")
	}
	if !strings.Contains(rss, "user.example.com") {
		t.Error("Expected the domain in the feed title")
	}
	if !strings.Contains(rss, "https://mastodon.example/activities/1") {
		t.Error("Expected the activity source as item link")
	}
}

func TestGetFeedAllDomains(t *testing.T) {
	store := &mockFeedStore{
		recent: []domain.Activity{
			testActivity("https://mastodon.example/activities/1"),
			testActivity("https://mastodon.example/activities/2"),
		},
	}

	rss, err := GetFeed(webTestConf(), "", store)
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	if !strings.Contains(rss, "activities/1") || !strings.Contains(rss, "activities/2") {
		t.Error("Expected both activities in the feed")
	}
}

func TestGetFeedStoreError(t *testing.T) {
	store := &mockFeedStore{err: fmt.Errorf("boom")}
	if _, err := GetFeed(webTestConf(), "user.example.com", store); err == nil {
		t.Error("Expected error")
	}
}
