package main

import (
	"context"
	"fmt"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish/logging"
	"github.com/deemkeen/fedbridge/db"
	"github.com/deemkeen/fedbridge/middleware"
	"github.com/deemkeen/fedbridge/util"
	"github.com/deemkeen/fedbridge/web"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/wish"
)

func main() {

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Println("Configuration: ")
	fmt.Println(util.PrettyPrint(conf))

	log.Println("Running database migrations...")
	database := db.GetDB()
	if err := database.RunMigrations(); err != nil {
		log.Printf("Warning: Migration errors (may be normal if tables exist): %v", err)
	}
	log.Println("Database migrations complete")

	if !conf.Conf.WithAdmin {
		if err := web.Router(conf); err != nil {
			log.Fatalln(err)
		}
		return
	}

	s, err := wish.NewServer(
		wish.WithAddress(fmt.Sprintf("%s:%d", conf.Conf.Host, conf.Conf.SshPort)),
		wish.WithHostKeyPath(util.ResolveFilePathWithSubdir(".ssh", "hostkey")),
		wish.WithPublicKeyAuth(publicKeyHandler),
		wish.WithMiddleware(
			middleware.AdminTui(),
			logging.Middleware(), // last middleware executed first
		),
	)
	if err != nil {
		log.Fatalln(err)
	}

	startServing(s, conf)

}

func startServing(s *ssh.Server, conf *util.AppConfig) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	log.Printf("Starting SSH server on %s:%d", conf.Conf.Host, conf.Conf.SshPort)
	go func() {
		if err := s.ListenAndServe(); err != nil {
			log.Fatalln(err)
		}
	}()

	go func() {
		if err := web.Router(conf); err != nil {
			log.Fatalln(err)
		}
	}()

	<-done
	log.Println("Stopping SSH server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer func() { cancel() }()
	if err := s.Shutdown(ctx); err != nil {
		log.Fatalln(err)
	}
}

func publicKeyHandler(ctx ssh.Context, key ssh.PublicKey) bool {
	// Any key gets in; the console is read-only and meant for operators
	// behind their own firewall.
	log.Printf("Admin console login from %s (%s)", ctx.RemoteAddr(), util.PublicKeyToString(key))
	return true
}
