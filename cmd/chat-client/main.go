package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sealor/chat-relay/pkg/config"
	"github.com/sealor/chat-relay/pkg/relay"
	"github.com/sealor/chat-relay/pkg/transport"
	"golang.org/x/term"
)

func main() {
	serverURL := flag.String("url", config.GetEnv("CHAT_RELAY_URL", "ws://127.0.0.1:3030/ws"), "WebSocket URL of the chat relay")
	user := flag.String("user", fmt.Sprintf("anon-%d", rand.Intn(1000)), "Display name")
	userMessage := flag.String("message", "", "Send one message, print the reply and exit")

	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalln("ERROR:", err)
	}
	defer conn.Close()

	t := term.NewTerminal(os.Stdin, "> ")

	replies := make(chan string, 1)
	go receive(t, conn, replies)

	for {
		prompt := *userMessage
		if len(*userMessage) == 0 {
			fd := int(os.Stdin.Fd())
			oldState, err := term.MakeRaw(fd)
			if err != nil {
				fmt.Fprintln(t, "Fatal:", err)
				break
			}

			width, height, err := term.GetSize(fd)
			if err != nil {
				fmt.Fprintln(t, "Fatal:", err)
				break
			}
			t.SetSize(width, height)

			prompt, err = t.ReadLine()
			restoreErr := term.Restore(fd, oldState)

			if err != nil {
				if err != io.EOF {
					fmt.Fprintln(t, "Fatal:", err)
				}
				break
			}
			if restoreErr != nil {
				fmt.Fprintln(t, "Fatal:", restoreErr)
				break
			}
		}

		if prompt == "" {
			continue
		}

		if err := send(conn, *user, prompt); err != nil {
			fmt.Fprintln(t, "Fatal:", err)
			break
		}

		// Block until the relay answers; it replies exactly once per
		// message.
		fmt.Fprintln(t, <-replies)

		if len(*userMessage) > 0 {
			break
		}
	}
}

func send(conn *websocket.Conn, user, text string) error {
	data, err := json.Marshal(relay.ChatMessage{
		ID:   uuid.NewString(),
		User: user,
		Text: text,
		TS:   time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return conn.WriteJSON(transport.Envelope{Event: relay.EventChatMessage, Data: data})
}

func receive(w io.Writer, conn *websocket.Conn, replies chan<- string) {
	for {
		var envelope transport.Envelope
		if err := conn.ReadJSON(&envelope); err != nil {
			replies <- fmt.Sprint("connection lost: ", err)
			return
		}

		switch envelope.Event {
		case relay.EventChatMessage:
			var msg relay.ChatMessage
			if err := json.Unmarshal(envelope.Data, &msg); err != nil {
				continue
			}
			replies <- fmt.Sprintf("%s: %s", msg.Role, msg.Text)
		case relay.EventChatBacklog:
			var items []relay.ChatMessage
			if err := json.Unmarshal(envelope.Data, &items); err != nil {
				continue
			}
			for _, msg := range items {
				fmt.Fprintf(w, "%s: %s\n", msg.Role, msg.Text)
			}
		}
	}
}
