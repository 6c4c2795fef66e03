package web

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/deemkeen/fedbridge/domain"
	"github.com/deemkeen/fedbridge/util"
	"github.com/gorilla/feeds"
)

const feedLimit = 50

// FeedStore is the slice of the database the feed needs.
type FeedStore interface {
	ReadActivitiesByDomain(userDomain string, limit int) (error, *[]domain.Activity)
	ReadRecentActivities(limit int) (error, *[]domain.Activity)
}

// GetFeed renders the logged inbound activities as RSS, either for one
// bridged domain or across all of them.
func GetFeed(conf *util.AppConfig, userDomain string, store FeedStore) (string, error) {

	var err error
	var activities *[]domain.Activity
	var title string

	link := fmt.Sprintf("%sfeed", conf.HostURL())

	if userDomain != "" {
		err, activities = store.ReadActivitiesByDomain(userDomain, feedLimit)
		if err != nil || activities == nil {
			log.Println(fmt.Sprintf("Could not get activities for %s!", userDomain), err)
			return "", errors.New("error retrieving activities by domain")
		}
		title = fmt.Sprintf("Fedbridge Activity - %s", userDomain)
		link = fmt.Sprintf("%s?domain=%s", link, userDomain)
	} else {
		err, activities = store.ReadRecentActivities(feedLimit)
		if err != nil || activities == nil {
			log.Println("Could not get activities!", err)
			return "", errors.New("error retrieving activities")
		}
		title = "Fedbridge Activity"
	}

	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: "activities bridged from the fediverse",
		Author:      &feeds.Author{Name: util.Name, Email: fmt.Sprintf("feed@%s", conf.Conf.Domain)},
		Created:     time.Now(),
	}

	var feedItems []*feeds.Item
	for _, activity := range *activities {
		feedItems = append(feedItems,
			&feeds.Item{
				Id:      activity.Id.String(),
				Title:   activity.CreatedAt.Format(util.DateTimeFormat()),
				Link:    &feeds.Link{Href: activity.Source},
				Content: activity.Body,
				Author:  &feeds.Author{Name: activity.Source},
				Created: activity.CreatedAt,
			})
	}

	feed.Items = feedItems
	return feed.ToRss()
}
