package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/paymesh/walletgate/logger"
	"github.com/paymesh/walletgate/service"
)

var (
	configFilePath string
	configFilePtr  = flag.String("config", "config.yml", "path to config file")
)

// RUN WITH PLAINTEXT CONFIG [RECOMMENDED FOR TESTING ONLY]
// $ go run main.go --config ./config.yml
//
// OR RUN WITH ENVIRONMENT VARIABLES
//
// $ go build
// $ export WG_CDP_KEY_ID=<key_id>
// $ export WG_CDP_KEY_SECRET=<key_secret>
// $ ./walletgate

func init() {
	// Parse flag containing path to config file
	flag.Parse()
	if configFilePtr != nil {
		configFilePath = *configFilePtr
	}
}

func main() {
	// Local .env files carry the facilitator credentials in development.
	_ = godotenv.Load()

	cfg, err := service.LoadConfig(configFilePath)
	if err != nil {
		panic(fmt.Sprintf("error parsing config: %v", err))
	}

	cfg.Sanitize()

	l := logger.NewZapLogger(cfg.LogLevel)

	srv, err := service.New(cfg, l)
	if err != nil {
		panic(fmt.Sprintf("error building service: %v", err))
	}

	srv.Start()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	srv.Stop(sig)
}
