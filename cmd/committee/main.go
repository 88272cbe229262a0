package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	committee "github.com/wa-psh/committee"
	"github.com/wa-psh/committee/auth"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		if err := serve(); err != nil {
			log.Fatalf("committee: %v", err)
		}
	case "hash-password":
		if err := hashPassword(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("committee %s\n", committee.Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func serve() error {
	// load .env if present
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("committee: read .env: %v", err)
	}

	cfg, err := committee.LoadConfig()
	if err != nil {
		return err
	}
	app, err := committee.New(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}

// hashPassword prints the bcrypt hash for ADMIN_PASSWORD_HASH. The password
// is read from the arguments or, when none are given, from stdin.
func hashPassword(args []string) error {
	password := strings.Join(args, " ")
	if password == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	cost := 0
	if cfg, err := committee.LoadConfig(); err == nil {
		cost = cfg.BcryptCost
	}
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func printUsage() {
	fmt.Println(`committee - PSH Advisory Committee site backend

Usage:
  committee [command] [arguments]

Commands:
  serve                    Run the HTTP server (default)
  hash-password [password] Print a bcrypt hash for ADMIN_PASSWORD_HASH
  version                  Print the version
  help                     Show this help message

Configuration is read from the environment and an optional .env file.`)
}
