package main

import (
	"context"
	"github.com/go-redis/redis/v7"
	"github.com/labstack/gommon/log"
	"net/http"
	"os"
	"os/signal"
	"partywatch.live/api"
	"partywatch.live/config"
	"partywatch.live/pkg/msgbroker"
	"partywatch.live/relay"
	"partywatch.live/storage"
	"syscall"
	"time"
)

func main() {
	// APP configuration
	c := config.Get()
	log.SetLevel(c.Level())

	var (
		rdb *redis.Client
		s   storage.Storage
		mb  msgbroker.MessageBroker
	)
	if c.RedisEnabled() {
		// Redis client
		rdb = redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := rdb.Ping().Err(); err != nil {
			log.Fatal(err)
		}
		s = storage.New(rdb)
		mb = msgbroker.NewRedisBroker(rdb)
	} else {
		log.Warn("REDIS_ADDR is not set, visits are kept in memory and room events are not published")
		s = storage.NewMemory()
	}

	// Relay
	rl := relay.New(c, mb)

	// API
	a := api.New(c, s, rl)

	go func() {
		// Starting API
		if err := a.Start(); err != nil && err != http.ErrServerClosed {
			log.Warn(err)
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	// waiting for signals
	quit := <-signals
	log.Infof("signal %s received, stopping server...", quit)
	// Stopping server
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	if err := a.Close(ctx); err != nil {
		log.Error(err)
	}
	cancel()

	if mb != nil {
		if err := mb.Close(); err != nil {
			log.Error(err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error(err)
		}
	}
}
