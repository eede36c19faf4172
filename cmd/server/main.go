package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/mediatrack/internal/config"
	"github.com/dmitrijs2005/mediatrack/internal/server"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
