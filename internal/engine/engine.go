// Package engine decides whether an inbound message deserves a reply and,
// when it does, runs the full pipeline: context assembly, generation,
// humanizing, paced delivery with retry, then memory and cooldown updates.
package engine

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"

	"github.com/bahromoov/aytchi/internal/bus"
	"github.com/bahromoov/aytchi/internal/channel"
	"github.com/bahromoov/aytchi/internal/generator"
	"github.com/bahromoov/aytchi/internal/memory"
	"github.com/bahromoov/aytchi/internal/persona"
	"github.com/bahromoov/aytchi/internal/session"
	"github.com/bahromoov/aytchi/internal/style"
)

const (
	// minMessageLen drops noise like "ok" before any state is touched.
	minMessageLen = 3
	// deliveryAttempts bounds the send retry budget. Rate-limit waits and
	// backoff retries share it.
	deliveryAttempts = 3

	typingBase    = 700 * time.Millisecond
	typingPerWord = 120 * time.Millisecond
	typingMax     = 6500 * time.Millisecond
)

// Engine orchestrates one reply pipeline per eligible message.
type Engine struct {
	names     []string
	ownerID   string
	registry  *session.Registry
	facts     *memory.FactStore
	style     *style.Corpus
	gen       generator.Generator
	transport channel.Channel

	rng       *rand.Rand
	sleep     func(ctx context.Context, d time.Duration)
	retryWait time.Duration
}

type Options struct {
	// Names trigger direct-mention detection, matched as whole words.
	Names []string
	// OwnerID, when set, feeds that user's messages to the style corpus.
	OwnerID string
	// Rand overrides the jitter source (for tests).
	Rand *rand.Rand
}

func New(opts Options, reg *session.Registry, facts *memory.FactStore, corpus *style.Corpus, gen generator.Generator, transport channel.Channel) *Engine {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	names := make([]string, 0, len(opts.Names))
	for _, n := range opts.Names {
		names = append(names, strings.ToLower(n))
	}
	return &Engine{
		names:     names,
		ownerID:   opts.OwnerID,
		registry:  reg,
		facts:     facts,
		style:     corpus,
		gen:       gen,
		transport: transport,
		rng:       rng,
		sleep:     sleepCtx,
		retryWait: time.Second,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Run drains the inbound bus until ctx is cancelled. Each message gets its
// own goroutine; messages from one user serialize on that user's gate while
// different users proceed in parallel.
func (e *Engine) Run(ctx context.Context, b *bus.MessageBus) {
	for {
		select {
		case msg := <-b.Inbound:
			go e.HandleIncomingMessage(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

// HandleIncomingMessage runs the eligibility state machine and, when the
// message qualifies, the reply pipeline under the user's gate.
func (e *Engine) HandleIncomingMessage(ctx context.Context, msg bus.InboundMessage) {
	if !msg.IsPrivate || msg.FromSelf || msg.FromBot || msg.ViaBot {
		return
	}

	text := strings.TrimSpace(msg.Content)
	if utf8.RuneCountInString(text) < minMessageLen {
		return
	}

	uid := msg.SenderID

	// Owner messages seed the style corpus regardless of gating.
	if e.ownerID != "" && uid == e.ownerID {
		e.style.TryRecord(text)
	}

	direct := e.isDirect(text, msg.ReplyToSelf)
	if direct {
		e.registry.ExtendDialog(uid)
	} else if !e.registry.DialogActive(uid) {
		return
	}
	if e.registry.InCooldown(uid) {
		return
	}

	gate := e.registry.Gate(uid)
	gate.Lock()
	defer gate.Unlock()

	// A message that queued behind an earlier pipeline re-evaluates
	// against the state that pipeline left behind.
	if !direct && !e.registry.DialogActive(uid) {
		return
	}
	if e.registry.InCooldown(uid) {
		return
	}

	e.reply(ctx, msg, uid, text)
}

func (e *Engine) reply(ctx context.Context, msg bus.InboundMessage, uid, text string) {
	prompt := persona.BuildPrompt(
		e.style.SampleExamples(style.DefaultSampleSize),
		persona.ClassifyTone(text),
		e.facts.RecentFactsText(uid, memory.DefaultRecentLimit),
		text,
	)

	raw, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		log.Printf("[engine] generation failed for user %s: %v", uid, err)
		return
	}
	if strings.TrimSpace(raw) == "" {
		log.Printf("[engine] empty response for user %s, skipping", uid)
		return
	}

	reply := persona.Humanize(raw, e.rng)

	if err := e.transport.SendTyping(msg.ChatID); err != nil {
		log.Printf("[engine] typing indicator for %s: %v", msg.ChatID, err)
	}
	e.sleep(ctx, e.typingDelay(reply))

	out := bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: reply,
		ReplyTo: msg.MessageID,
	}
	if err := e.deliverWithRetry(ctx, out); err != nil {
		log.Printf("[engine] delivery failed for user %s: %v", uid, err)
		return
	}

	e.facts.RecordUtterance(uid, text)
	e.registry.MarkReplied(uid)
}

// typingDelay scales with reply length and carries a jitter multiplier in
// [0.85, 1.30) so pacing never looks mechanical.
func (e *Engine) typingDelay(reply string) time.Duration {
	words := len(strings.Fields(reply))
	delay := typingBase + time.Duration(words)*typingPerWord
	if delay > typingMax {
		delay = typingMax
	}
	jitter := 0.85 + e.rng.Float64()*0.45
	return time.Duration(float64(delay) * jitter)
}

// deliverWithRetry sends with up to deliveryAttempts tries. A rate-limit
// error waits the transport-specified duration; anything else backs off
// exponentially. Both kinds of retry consume the same attempt budget.
func (e *Engine) deliverWithRetry(ctx context.Context, out bus.OutboundMessage) error {
	op := func() (struct{}, error) {
		err := e.transport.Send(out)
		if err == nil {
			return struct{}{}, nil
		}
		var rl *channel.RateLimitedError
		if errors.As(err, &rl) {
			log.Printf("[engine] rate limited, waiting %s", rl.RetryAfter)
			return struct{}{}, &backoff.RetryAfterError{Duration: rl.RetryAfter}
		}
		return struct{}{}, err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = e.retryWait
	expo.RandomizationFactor = 0
	expo.Multiplier = 2

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(deliveryAttempts),
	)
	return err
}

// isDirect reports whether the message names the bot or replies to it.
// Aliases match as whole words; plain \b does not understand Cyrillic, so
// boundaries are checked by hand.
func (e *Engine) isDirect(text string, replyToSelf bool) bool {
	if replyToSelf {
		return true
	}
	t := strings.ToLower(text)
	for _, name := range e.names {
		if containsWholeWord(t, name) {
			return true
		}
	}
	return false
}

func containsWholeWord(text, word string) bool {
	for from := 0; ; {
		i := strings.Index(text[from:], word)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(word)
		if !wordRuneBefore(text, start) && !wordRuneAt(text, end) {
			return true
		}
		from = start + 1
	}
}

func wordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isWordRune(r)
}

func wordRuneAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
