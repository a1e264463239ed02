package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/dayuer/agentchat/internal/bus"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Join the conversation from the terminal through the bridge",
	RunE:  runChat,
}

var (
	chatURL    string
	chatSender string
)

func init() {
	chatCmd.Flags().StringVar(&chatURL, "url", "", "Bridge WebSocket URL (default ws://localhost:<gateway.port>/ws)")
	chatCmd.Flags().StringVarP(&chatSender, "name", "n", "", "Name to speak as (default chat.relayName)")
	rootCmd.AddCommand(chatCmd)
}

var (
	timeStyle = lipgloss.NewStyle().Faint(true)
	infoStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8"))
)

// renderEnvelope formats one message as "hh:mm:ss Sender: content" with the
// sender in its channel colour.
func renderEnvelope(env bus.Envelope) string {
	label := lipgloss.NewStyle().Bold(true)
	if env.Color != "" {
		label = label.Foreground(lipgloss.Color(env.Color))
	}
	ts := env.Timestamp
	if len(ts) >= 19 {
		ts = ts[11:19]
	}
	return fmt.Sprintf("%s %s: %s", timeStyle.Render(ts), label.Render(env.Sender), env.Content)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	url := firstNonEmpty(chatURL, fmt.Sprintf("ws://localhost:%d/ws", cfg.Gateway.Port))
	sender := firstNonEmpty(chatSender, cfg.Chat.RelayName)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer conn.Close()

	fmt.Println(infoStyle.Render(fmt.Sprintf("Connected to %s as %s. Type 'exit' to quit.", url, sender)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var env bus.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					fmt.Fprintln(os.Stderr, infoStyle.Render("connection lost: "+err.Error()))
				}
				return
			}
			fmt.Println(renderEnvelope(env))
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	ctx, stop := signalContext()
	defer stop()

	exitCommands := map[string]bool{"exit": true, "quit": true, "/exit": true, "/quit": true, ":q": true}
	for {
		select {
		case <-ctx.Done():
			return closeChat(conn)
		case <-done:
			return nil
		case line, ok := <-lines:
			if !ok {
				return closeChat(conn)
			}
			input := strings.TrimSpace(line)
			if input == "" {
				continue
			}
			if exitCommands[strings.ToLower(input)] {
				return closeChat(conn)
			}
			msg := map[string]string{"type": bus.TypeMessage, "sender": sender, "role": string(bus.RoleUser), "content": input}
			if err := conn.WriteJSON(msg); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}

func closeChat(conn *websocket.Conn) error {
	fmt.Println(infoStyle.Render("Goodbye!"))
	return conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
