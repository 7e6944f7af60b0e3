package database

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var (
	c    *redis.Client
	once sync.Once
	opts = &redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	}
)

// Configure sets the connection options. It must be called before the first
// call to Database.
func Configure(addr, password string, db int) {
	opts = &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
}

func initDatabase() {
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	res := rdb.Ping(ctx)
	if res.Err() != nil {
		log.Fatal().Err(res.Err()).Str("addr", opts.Addr).Msg("could not connect to redis")
	}

	c = rdb
}

func Database() *redis.Client {
	once.Do(initDatabase)
	return c
}
