package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/joho/godotenv"

	"github.com/codecollab/collab-server/internal/chatclient"
	"github.com/codecollab/collab-server/internal/server"
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:3001/chat"`
	RoomID    string `env:"CHAT_ROOM_ID,default=demo"`
	Username  string `env:"CHAT_USERNAME"`
	LogLevel  string `env:"LOG_LEVEL,default=warn"`
}

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if cfg.Username == "" {
		cfg.Username = fmt.Sprintf("User_%d", rand.Intn(1000))
	}
	log := server.NewLogger(cfg.LogLevel)

	session, err := chatclient.New(chatclient.Config{
		ServerURL: cfg.ServerURL,
		RoomID:    cfg.RoomID,
		UserID:    uuid.NewString(),
		Username:  cfg.Username,
	}, chatclient.Handlers{
		OnRoomJoined: printRoomJoined,
		OnMessage:    printMessage,
		OnUserJoined: func(user chatclient.User, users []chatclient.User) {
			color.Green.Printf("* %s joined (%d online)\n", user.Username, len(users))
		},
		OnUserLeft: func(user chatclient.User, users []chatclient.User) {
			color.Yellow.Printf("* %s left (%d online)\n", user.Username, len(users))
		},
	}, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("session stopped", "err", err)
		}
	}()

	color.Cyan.Printf(">>> Room %q on %s as %s (Ctrl+C to quit)\n", cfg.RoomID, cfg.ServerURL, cfg.Username)

	lines := make(chan string)
	go readLines(lines)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nBye.")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			if err := session.Send(line); err != nil {
				color.Red.Printf("! not delivered: %v\n", err)
			}
		}
	}
}

func readLines(out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out <- strings.TrimSpace(scanner.Text())
	}
}

func printRoomJoined(users []chatclient.User, history []chatclient.ChatMessage) {
	color.Cyan.Printf("* %d user(s) online\n", len(users))
	for _, msg := range history {
		printMessage(msg)
	}
}

func printMessage(msg chatclient.ChatMessage) {
	fmt.Printf("[%s] %s: %s\n",
		msg.Timestamp.Local().Format(time.TimeOnly),
		color.Bold.Sprint(msg.Username),
		msg.Body)
}
