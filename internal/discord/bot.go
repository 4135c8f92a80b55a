// Package discord runs the game over Discord. Every message in the
// configured channel is one player turn; the bot's replies are the
// narration. Each channel gets its own game session, created lazily on the
// first message and dropped when its game ends.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/fableturn/internal/pipeline"
)

// maxMessageLen is Discord's hard limit per message.
const maxMessageLen = 2000

// SessionFactory creates a fresh game session for one channel.
type SessionFactory func(ctx context.Context, channelID string) (*pipeline.Session, error)

// Config holds the Discord frontend settings.
type Config struct {
	// Token is the bot token.
	Token string

	// ChannelID restricts play to one channel. Empty plays in every
	// channel the bot can read.
	ChannelID string
}

// Bot owns the Discord gateway connection and the per-channel sessions.
type Bot struct {
	session   *discordgo.Session
	factory   SessionFactory
	channelID string
	log       *slog.Logger

	mu    sync.Mutex
	games map[string]*pipeline.Session

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Bot and connects it to the Discord gateway.
func New(cfg Config, factory SessionFactory, log *slog.Logger) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		session:   session,
		factory:   factory,
		channelID: cfg.ChannelID,
		log:       log,
		games:     make(map[string]*pipeline.Session),
		done:      make(chan struct{}),
	}
	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.handleMessage(s, m)
	})

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discord: open session: %w", err)
	}
	return b, nil
}

// Run blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info("discord frontend running", "channel", b.channelID)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return nil
	}
}

// Close disconnects from Discord and releases every session.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		close(b.done)
		b.mu.Lock()
		for id, sess := range b.games {
			sess.Close()
			delete(b.games, id)
		}
		b.mu.Unlock()
		if err := b.session.Close(); err != nil {
			closeErr = fmt.Errorf("discord: close session: %w", err)
		}
	})
	return closeErr
}

// shouldHandle filters out the bot's own messages and foreign channels.
func (b *Bot) shouldHandle(selfID, authorID, channelID, content string) bool {
	if authorID == selfID || authorID == "" {
		return false
	}
	if b.channelID != "" && channelID != b.channelID {
		return false
	}
	return strings.TrimSpace(content) != ""
}

func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	selfID := ""
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	if !b.shouldHandle(selfID, m.Author.ID, m.ChannelID, m.Content) {
		return
	}

	ctx := context.Background()
	sess, fresh, err := b.sessionFor(ctx, m.ChannelID)
	if err != nil {
		b.log.Error("session creation failed", "channel", m.ChannelID, "error", err)
		b.reply(s, m.ChannelID, "Something went wrong starting the game. Try again in a moment.")
		return
	}
	if fresh {
		b.reply(s, m.ChannelID, sess.Greeting())
	}

	// Turns can take a while with language collaborators in the loop.
	if err := s.ChannelTyping(m.ChannelID); err != nil {
		b.log.Debug("typing indicator failed", "channel", m.ChannelID, "error", err)
	}

	res := sess.HandleInput(ctx, m.Content)
	b.reply(s, m.ChannelID, res.Text)

	if res.GameOver {
		b.dropSession(m.ChannelID)
		b.reply(s, m.ChannelID, "Send another message to start a new game.")
	}
}

// sessionFor returns the channel's session, creating one when missing.
func (b *Bot) sessionFor(ctx context.Context, channelID string) (sess *pipeline.Session, fresh bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sess, ok := b.games[channelID]; ok {
		return sess, false, nil
	}
	sess, err = b.factory(ctx, channelID)
	if err != nil {
		return nil, false, err
	}
	b.games[channelID] = sess
	return sess, true, nil
}

func (b *Bot) dropSession(channelID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sess, ok := b.games[channelID]; ok {
		sess.Close()
		delete(b.games, channelID)
	}
}

// reply sends text to the channel, split to fit Discord's message limit.
func (b *Bot) reply(s *discordgo.Session, channelID, text string) {
	for _, chunk := range splitMessage(text, maxMessageLen) {
		if _, err := s.ChannelMessageSend(channelID, chunk); err != nil {
			b.log.Warn("message send failed", "channel", channelID, "error", err)
			return
		}
	}
}

// splitMessage cuts text into chunks of at most limit runes, preferring
// paragraph and line boundaries over mid-sentence cuts.
func splitMessage(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var chunks []string
	for len([]rune(text)) > limit {
		runes := []rune(text)
		cut := limit
		window := string(runes[:limit])
		for _, sep := range []string{"\n\n", "\n", " "} {
			if i := strings.LastIndex(window, sep); i > 0 {
				cut = len([]rune(window[:i]))
				break
			}
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[:cut])))
		text = strings.TrimSpace(string(runes[cut:]))
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
