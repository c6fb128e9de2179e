// Package gateway wires the conversational relay together: config, the
// Telegram channel, the fact store, the style corpus, the session registry,
// the generator and the engine.
package gateway

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bahromoov/aytchi/internal/bus"
	"github.com/bahromoov/aytchi/internal/channel"
	"github.com/bahromoov/aytchi/internal/config"
	"github.com/bahromoov/aytchi/internal/engine"
	"github.com/bahromoov/aytchi/internal/generator"
	"github.com/bahromoov/aytchi/internal/memory"
	"github.com/bahromoov/aytchi/internal/session"
	"github.com/bahromoov/aytchi/internal/style"
)

// GeneratorFactory creates the text backend (allows injection for testing).
type GeneratorFactory func(cfg *config.Config) (generator.Generator, error)

// ChannelFactory creates the chat transport (allows injection for testing).
type ChannelFactory func(cfg *config.Config, b *bus.MessageBus) (channel.Channel, error)

// Options for creating a Gateway.
type Options struct {
	GeneratorFactory GeneratorFactory
	ChannelFactory   ChannelFactory
	SignalChan       chan os.Signal // for testing signal handling
}

type Gateway struct {
	cfg      *config.Config
	bus      *bus.MessageBus
	facts    *memory.FactStore
	corpus   *style.Corpus
	registry *session.Registry
	gen      generator.Generator
	ch       channel.Channel
	engine   *engine.Engine
	tasks    *cron.Cron

	signalChan chan os.Signal
}

// New creates a Gateway with default collaborators.
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom factories for testing.
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Gateway{cfg: cfg, signalChan: opts.SignalChan}
	g.bus = bus.NewMessageBus(cfg.Gateway.BufSize)

	g.facts = memory.NewFactStore(cfg.MemoryPath())
	g.corpus = style.NewCorpus(cfg.StylePath(), nil)
	g.registry = session.NewRegistry()

	genFactory := opts.GeneratorFactory
	if genFactory == nil {
		genFactory = generator.New
	}
	gen, err := genFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}
	g.gen = gen

	chFactory := opts.ChannelFactory
	if chFactory == nil {
		chFactory = func(cfg *config.Config, b *bus.MessageBus) (channel.Channel, error) {
			return channel.NewTelegramChannel(cfg.Channels.Telegram, b)
		}
	}
	ch, err := chFactory(cfg, g.bus)
	if err != nil {
		g.gen.Close()
		return nil, fmt.Errorf("create channel: %w", err)
	}
	g.ch = ch

	g.engine = engine.New(engine.Options{
		Names:   cfg.Persona.Names,
		OwnerID: cfg.Persona.OwnerID,
		Rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, g.registry, g.facts, g.corpus, g.gen, g.ch)

	return g, nil
}

// Run starts the channel, the background tasks and the engine loop, then
// blocks until a shutdown signal arrives.
func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := g.ch.Start(ctx); err != nil {
		return fmt.Errorf("start channel: %w", err)
	}

	tasks, err := g.engine.StartBackgroundTasks()
	if err != nil {
		_ = g.ch.Stop()
		return fmt.Errorf("start background tasks: %w", err)
	}
	g.tasks = tasks

	go g.engine.Run(ctx, g.bus)

	log.Printf("[gateway] running as %s on %s", g.ch.SelfID(), g.ch.Name())

	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

// Shutdown stops polling and background work, then flushes what is dirty.
func (g *Gateway) Shutdown() error {
	if g.tasks != nil {
		<-g.tasks.Stop().Done()
	}
	if g.ch != nil {
		_ = g.ch.Stop()
	}
	if g.gen != nil {
		g.gen.Close()
	}
	g.facts.FlushIfDirty()
	log.Printf("[gateway] shutdown complete")
	return nil
}
