package web

import (
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/deemkeen/fedbridge/activitypub"
	"github.com/deemkeen/fedbridge/db"
	"github.com/deemkeen/fedbridge/util"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"golang.org/x/time/rate"
)

// domainRe matches a bare registrable domain, nothing more. It gates
// which unknown paths the fallback treats as bridged-domain routes.
var domainRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*(\.[a-z0-9][a-z0-9-]*)+$`)

func Router(conf *util.AppConfig) error {
	log.Printf("Starting HTTP server on %s:%d", conf.Conf.Host, conf.Conf.HttpPort)
	database := db.GetDB()

	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	// Stricter rate limit for inbox traffic: 5 req/sec per IP
	apLimiter := NewRateLimiter(rate.Limit(5), 10)

	// Max 1MB request body size for activities
	maxBodySize := MaxBytesMiddleware(1 * 1024 * 1024)

	g.GET("/", func(c *gin.Context) {
		c.String(200, util.GetNameAndVersion())
	})

	// Wrapped URLs from outbound activities land here and bounce back
	// to their real target
	g.GET("/r/*url", func(c *gin.Context) {
		target := strings.TrimPrefix(c.Param("url"), "/")
		if c.Request.URL.RawQuery != "" {
			target = target + "?" + c.Request.URL.RawQuery
		}
		if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			c.Status(http.StatusNotFound)
			return
		}
		c.Redirect(http.StatusMovedPermanently, target)
	})

	// RSS Feed of bridged activity
	g.GET("/feed", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")

		userDomain := c.Query("domain")
		rss, err := GetFeed(conf, userDomain, database)
		if err != nil {
			c.Render(404, render.String{Format: ""})
		} else {
			c.Render(200, render.String{Format: rss})
		}
	})

	// Shared inbox; the handler works the target domain out of the
	// activity itself
	g.POST("/inbox", RateLimitMiddleware(apLimiter), maxBodySize, func(c *gin.Context) {
		log.Println("POST /inbox (shared inbox)")
		activitypub.HandleInbox(c.Writer, c.Request, "", conf)
	})

	// gin can't mix a first-segment parameter with the static routes
	// above, so the per-domain actor and inbox routes live in the
	// fallback
	g.NoRoute(RateLimitMiddleware(apLimiter), maxBodySize, func(c *gin.Context) {
		parts := strings.Split(strings.Trim(c.Request.URL.Path, "/"), "/")

		if c.Request.Method == http.MethodGet && len(parts) == 1 && domainRe.MatchString(parts[0]) {
			c.Header("Content-Type", "application/activity+json; charset=utf-8")
			err, actor := GetActor(parts[0], conf, database)
			if err != nil {
				c.Render(404, render.String{Format: "{}"})
			} else {
				c.Render(200, render.String{Format: actor})
			}
			return
		}

		if c.Request.Method == http.MethodPost && len(parts) == 2 && parts[1] == "inbox" && domainRe.MatchString(parts[0]) {
			log.Printf("POST /%s/inbox", parts[0])
			activitypub.HandleInbox(c.Writer, c.Request, parts[0], conf)
			return
		}

		c.Status(http.StatusNotFound)
	})

	err := g.Run(fmt.Sprintf(":%d", conf.Conf.HttpPort))
	if err != nil {
		return err
	}
	return nil
}
